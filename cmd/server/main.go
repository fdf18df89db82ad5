package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/event-manager/internal/app"
	"github.com/example/event-manager/internal/config"
	"github.com/example/event-manager/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.UsesDefaultSecret() {
		logger.Warn("SECRET_KEY is not set; using the development placeholder")
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start application", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if err := application.Close(); err != nil {
		logger.Error("failed to close storage", "error", err)
	}
	if runErr != nil {
		logger.Error("server encountered error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
