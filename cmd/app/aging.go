package main

import (
	"fmt"
	"os"

	"lumberyard/internal/adapters/cli"
	"lumberyard/internal/app"
	"lumberyard/internal/export"

	"github.com/spf13/cobra"
)

var agingCmd = &cobra.Command{
	Use:   "aging",
	Short: "Print the accounts receivable aging report",
	Example: `  # All customers as of today
  app aging

  # One customer as of month end, written to a workbook
  app aging --customer 42 --as-of 2026-06-30 --xlsx aging.xlsx`,
	RunE: runAging,
}

func init() {
	rootCmd.AddCommand(agingCmd)
	agingCmd.Flags().Int("customer", 0, "Only this customer id")
	agingCmd.Flags().Int("limit", 50, "Customers per page (max 200)")
	agingCmd.Flags().Int("offset", 0, "Customers to skip")
	agingCmd.Flags().String("as-of", "", "Report date YYYY-MM-DD (default: today)")
	agingCmd.Flags().String("xlsx", "", "Write the report to this XLSX file instead of stdout")
}

func runAging(cmd *cobra.Command, args []string) error {
	req := app.AgingRequest{}
	req.Limit, _ = cmd.Flags().GetInt("limit")
	req.Offset, _ = cmd.Flags().GetInt("offset")
	if id, _ := cmd.Flags().GetInt("customer"); id != 0 {
		req.CustomerID = &id
	}
	asOf, err := dateFlag(cmd, "as-of")
	if err != nil {
		return err
	}
	req.AsOf = asOf

	ctx, rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.App.GetInvoiceAging(ctx, req)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("xlsx")
	if path == "" {
		cli.PrintAgingReport(cmd.OutOrStdout(), report)
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.WriteAgingXLSX(f, report); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Aging report as of %s written to %s\n", report.AsOf, path)
	return nil
}
