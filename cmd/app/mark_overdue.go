package main

import (
	"lumberyard/internal/adapters/cli"

	"github.com/spf13/cobra"
)

var markOverdueCmd = &cobra.Command{
	Use:   "mark-overdue",
	Short: "Flag open invoices past their due date as OVERDUE",
	Long: `Moves SENT and PARTIALLY_PAID invoices whose due date is before the
as-of date and that still carry a balance to OVERDUE. Intended to run
daily from cron.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := dateFlag(cmd, "as-of")
		if err != nil {
			return err
		}
		ctx, rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		result, err := rt.App.MarkOverdue(ctx, asOf)
		if err != nil {
			return err
		}
		cli.PrintMarkOverdue(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(markOverdueCmd)
	markOverdueCmd.Flags().String("as-of", "", "Cutoff date YYYY-MM-DD (default: today)")
}
