package cli

import (
	"github.com/spf13/cobra"
)

func newPreviewCmd(opts *options) *cobra.Command {
	var customerID, environment string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the setup request without sending it",
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

			preview, err := a.Executor.Preview(cmd.Context(), customer, environment)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), preview)
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id")
	cmd.Flags().StringVar(&environment, "env", "", "Target environment")
	cmd.MarkFlagRequired("customer")
	cmd.MarkFlagRequired("env")
	return cmd
}
