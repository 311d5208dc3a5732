package cli

import (
	"github.com/spf13/cobra"
)

func newCustomersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "customers",
		Short: "List the configured customer profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.Close()
			return opts.print(cmd.OutOrStdout(), a.Customers.List())
		},
	}
}
