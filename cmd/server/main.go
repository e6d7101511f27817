// Package main implements the entry point for the clipforge server,
// which runs the content automation pipeline behind an asynchronous task
// queue and serves the dashboard API.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/mwarren/clipforge/internal/config"
	"github.com/mwarren/clipforge/internal/platform/logger"
)

func main() {
	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up logging. Returns the
// loaded config, the root logger, and any initialization error.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_count", cfg.Task.WorkerCount,
		"queue_size", cfg.Task.QueueSize)

	if cfg.Upload.ClientSecretsFile == "" || cfg.Upload.TokenFile == "" {
		appLogger.Warn("YouTube credentials not configured, uploads disabled")
	}

	return cfg, appLogger, nil
}
