// Package server wires configuration, storage and the HTTP adapter into a
// running process. Both cmd/server and the CLI's serve command use it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"lumberyard/internal/adapters/web"
	"lumberyard/internal/app"
	"lumberyard/internal/config"
	"lumberyard/internal/core"
	"lumberyard/internal/db"
	"lumberyard/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 30 * time.Second

// Runtime holds the long-lived connections and the application service.
type Runtime struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client // nil when REDIS_URL is unset
	App   app.ApplicationService
}

// Open connects to Postgres (and Redis when configured), optionally applies
// pending migrations and builds the application service.
func Open(ctx context.Context, cfg *config.Config, migrate bool) (*Runtime, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	rdb, err := newRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	svc := app.NewAppService(app.NewServices(pool, cfg.PricingDefaults()), core.NewRolePolicy())
	return &Runtime{Pool: pool, Redis: rdb, App: svc}, nil
}

// Close releases the connections.
func (rt *Runtime) Close() {
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	rt.Pool.Close()
}

// Handler builds the HTTP API for rt.
func (rt *Runtime) Handler(cfg *config.Config) http.Handler {
	opts := web.Options{
		AllowedOrigins: cfg.Origins(),
		JWTSecret:      cfg.JWTSecret,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	if rt.Redis != nil {
		opts.Idempotency = web.NewRedisIdempotencyStore(rt.Redis)
	}
	return web.NewHandler(rt.App, opts)
}

// Run opens the runtime and serves the API until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, migrate bool) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required to serve the API")
	}
	rt, err := Open(ctx, cfg, migrate)
	if err != nil {
		return err
	}
	defer rt.Close()
	return Serve(ctx, ":"+cfg.ServerPort, rt.Handler(cfg))
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests for up to 30 seconds.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	log := logger.WithComponent("server")
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", addr).Msg("server starting")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		log := logger.WithComponent("server")
		log.Warn().Msg("REDIS_URL not set, Idempotency-Key headers will be ignored")
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}
	return rdb, nil
}
