package main

import (
	"fmt"

	"lumberyard/internal/db"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Restore demo locations, products, stock and customers",
	Long: `Restore the demo master data. Existing rows are updated in place,
missing ones are added. Quotes, orders and invoices are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := db.NewPool(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.SeedDemo(cmd.Context(), pool); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Seed data restored.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
