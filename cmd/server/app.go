package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mwarren/clipforge/internal/affiliate"
	"github.com/mwarren/clipforge/internal/auth"
	"github.com/mwarren/clipforge/internal/cache"
	"github.com/mwarren/clipforge/internal/config"
	"github.com/mwarren/clipforge/internal/engine"
	"github.com/mwarren/clipforge/internal/history"
	"github.com/mwarren/clipforge/internal/media"
	"github.com/mwarren/clipforge/internal/platform/gemini"
	"github.com/mwarren/clipforge/internal/task"
	"github.com/mwarren/clipforge/internal/upload"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	cacheStore   *cache.Store
	historyStore history.Store
	tokenService auth.TokenService
	engine       *engine.Engine
	taskService  *task.TaskService
}

// newApplication creates a new application instance with all dependencies
// initialized and the task workers started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.tokenService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.cacheStore, err = cache.NewStore(cache.StoreConfig{
		Dir:        cfg.Cache.Dir,
		DefaultTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		MaxSizeMB:  cfg.Cache.MaxSizeMB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	app.historyStore, err = history.NewBadgerStore(cfg.History.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}

	generator, err := gemini.NewGenerator(
		ctx,
		logger.With("component", "script_generator"),
		cfg.Content,
		app.cacheStore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize script generator: %w", err)
	}
	logger.Info("Script generator initialized", "model", cfg.Content.ModelName)

	var uploader upload.Uploader
	if cfg.Upload.ClientSecretsFile != "" && cfg.Upload.TokenFile != "" {
		uploader, err = upload.NewYouTubeUploader(ctx, logger, cfg.Upload)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize uploader: %w", err)
		}
		logger.Info("YouTube uploader initialized")
	}

	if err := os.MkdirAll(cfg.Video.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create video output directory: %w", err)
	}

	app.engine, err = engine.New(engine.Dependencies{
		Logger:      logger,
		Generator:   generator,
		Synthesizer: media.NewEspeakSynthesizer(logger),
		Renderer:    media.NewFFmpegRenderer(logger),
		Uploader:    uploader,
		Links:       affiliate.NewLinkBuilder(cfg.Content.AffiliateTag),
		History:     app.historyStore,
		Settings:    engine.NewSettings(cfg.Content.Topic, cfg.Content.Frequency, cfg.Video.Privacy),
		OutputDir:   cfg.Video.OutputDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	app.taskService = setupTaskService(app)

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupTaskService wires the engine into the asynchronous task service
// and starts the workers.
func setupTaskService(app *application) *task.TaskService {
	svc := task.NewTaskService(task.Config{
		WorkerCount: app.config.Task.WorkerCount,
		QueueSize:   app.config.Task.QueueSize,
	}, app.logger)

	svc.SetExecutor(app.engine.Execute)
	svc.Start()
	return svc
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskService != nil {
		app.taskService.Stop()
	}

	if app.historyStore != nil {
		if err := app.historyStore.Close(); err != nil {
			app.logger.Error("Error closing history store", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
