package main

import (
	"context"
	"fmt"
	"os"

	"lumberyard/internal/config"
	"lumberyard/internal/core"
	"lumberyard/internal/logger"
	"lumberyard/internal/server"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// cfg is loaded once by the root command before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "app",
	Short: "Lumber yard quotes, orders, invoices and receivables",
	Long: `app runs the lumber yard API and its maintenance jobs.

Configuration comes from the environment (a .env file in the working
directory is loaded first). DATABASE_URL is always required.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		return logger.Setup(cfg.GetLoggerConfig())
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openRuntime connects for a one-shot job running as the system actor.
func openRuntime(cmd *cobra.Command) (context.Context, *server.Runtime, error) {
	rt, err := server.Open(cmd.Context(), cfg, false)
	if err != nil {
		return nil, nil, err
	}
	return core.WithActor(cmd.Context(), core.SystemActor()), rt, nil
}

// dateFlag parses an optional YYYY-MM-DD flag.
func dateFlag(cmd *cobra.Command, name string) (*core.Date, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s, use YYYY-MM-DD: %w", name, err)
	}
	return &d, nil
}
