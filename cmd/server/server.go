package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"brainstorm-api/internal/config"
	"brainstorm-api/internal/infrastructure/crontab"
	"brainstorm-api/internal/infrastructure/logger"
	"brainstorm-api/internal/infrastructure/observability"
	"brainstorm-api/internal/interfaces/httpserver"
	"brainstorm-api/internal/worker"
)

// @title Brainstorm API
// @version 1.0
// @description Conversational brainstorming backend. Each message gets an immediate reply while a background workflow classifies intent, runs capabilities and records decisions.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	pool       *worker.Pool
	cron       *crontab.Crontab
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, pool *worker.Pool, cron *crontab.Crontab, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		pool:       pool,
		cron:       cron,
		log:        log,
	}
}

// Start runs the worker pool, the maintenance crontab and the HTTP server until ctx is done.
func (a *Application) Start(ctx context.Context) error {
	a.pool.Start(ctx)
	defer func() {
		a.log.Info().Msg("stopping worker pool")
		a.pool.Stop()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.cron.Run(gctx) })
	g.Go(func() error { return a.httpServer.Run(gctx) })
	return g.Wait()
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	app, cleanup, err := buildApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build application")
	}
	defer cleanup()

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
