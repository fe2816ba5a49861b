// Package app assembles the companion runtime from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/easeaico/memorify/internal/agent"
	"github.com/easeaico/memorify/internal/companion"
	"github.com/easeaico/memorify/internal/config"
	"github.com/easeaico/memorify/internal/generator"
	"github.com/easeaico/memorify/internal/insight"
	"github.com/easeaico/memorify/internal/lease"
	"github.com/easeaico/memorify/internal/memory"
	"github.com/easeaico/memorify/internal/models"
	"github.com/easeaico/memorify/internal/objectstore"
	"github.com/easeaico/memorify/internal/retry"
	"github.com/easeaico/memorify/internal/storage"
	"github.com/easeaico/memorify/internal/visual"
)

// App holds the wired runtime.
type App struct {
	Config       config.Config
	Store        *storage.Store
	Companion    *companion.Companion
	Orchestrator *agent.Orchestrator
	Logger       *slog.Logger

	closers []io.Closer
}

// New connects to the database and the configured providers and wires the companion.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a := &App{Config: cfg, Store: store, Logger: logger}

	retrier := retry.New(retry.Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		Timeout:     cfg.RequestTimeout,
	}, logger)

	llm, err := models.NewLLM(ctx, cfg.LLMProvider, cfg.LLMModel, cfg.ProviderAPIKey())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create LLM: %w", err)
	}
	deps := companion.Deps{
		Config:    cfg,
		Store:     store,
		Generator: generator.New(llm, retrier, cfg.GenerationRPS),
		Logger:    logger,
	}

	if cfg.GoogleAPIKey != "" && cfg.EmbeddingModel != "" {
		embedder, err := memory.NewGenAIEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		deps.Embedder = embedder
	}

	renderer, err := newRenderer(ctx, cfg, retrier)
	if err != nil {
		a.Close()
		return nil, err
	}
	if renderer != nil {
		deps.Renderer = renderer
	}

	if cfg.RedisURL != "" {
		redisLease, err := lease.NewRedis(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create redis lease: %w", err)
		}
		a.closers = append(a.closers, redisLease)
		deps.Lease = redisLease
	}

	a.Companion, a.Orchestrator = companion.Build(deps)
	logger.Info("companion wired",
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
		"embedder", deps.Embedder != nil,
		"renderer", renderer != nil,
		"distributed_lease", cfg.RedisURL != "",
	)
	return a, nil
}

// newRenderer returns nil when no image model is configured.
func newRenderer(ctx context.Context, cfg config.Config, retrier *retry.Retrier) (insight.Renderer, error) {
	if cfg.ImageModel == "" || cfg.GoogleAPIKey == "" {
		return nil, nil
	}
	images, err := models.NewGeminiImageGenerator(ctx, cfg.GoogleAPIKey, cfg.ImageModel, cfg.AspectRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create image generator: %w", err)
	}
	var uploader visual.Uploader
	if cfg.MinioEndpoint != "" {
		objects, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create object store: %w", err)
		}
		uploader = objects
	}
	return visual.NewRenderer(images, uploader, retrier), nil
}

// Close releases the database and lease connections.
func (a *App) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	a.Store.Close()
}
