package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"lumberyard/internal/config"
	"lumberyard/internal/logger"
	"lumberyard/internal/server"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatal().Err(err).Msg("logger setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, cfg.MigrateOnStart); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
