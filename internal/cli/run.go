package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// ErrTestFailed is returned when the setup test ran but did not succeed
var ErrTestFailed = errors.New("punchout test failed")

func newRunCmd(opts *options) *cobra.Command {
	var customerID, environment string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a PunchOut setup test and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.Close()

			customer, err := a.Customers.Get(customerID)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := a.Executor.Execute(ctx, customer, environment)
			if err != nil {
				return err
			}
			if err := opts.print(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Success {
				return ErrTestFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id (see the customers command)")
	cmd.Flags().StringVar(&environment, "env", "", "Target environment, e.g. dev or stage")
	cmd.MarkFlagRequired("customer")
	cmd.MarkFlagRequired("env")
	return cmd
}
