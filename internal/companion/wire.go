package companion

import (
	"log/slog"

	"github.com/easeaico/memorify/internal/agent"
	"github.com/easeaico/memorify/internal/checkin"
	"github.com/easeaico/memorify/internal/config"
	"github.com/easeaico/memorify/internal/generator"
	"github.com/easeaico/memorify/internal/insight"
	"github.com/easeaico/memorify/internal/lease"
	"github.com/easeaico/memorify/internal/memory"
	"github.com/easeaico/memorify/internal/prompt"
	"github.com/easeaico/memorify/internal/retry"
	"github.com/easeaico/memorify/internal/settings"
	"github.com/easeaico/memorify/internal/storage"
	"github.com/easeaico/memorify/internal/trigger"
)

// Deps are the collaborators a Companion is built from. Generator, Embedder,
// Renderer and Lease are optional.
type Deps struct {
	Config    config.Config
	Store     *storage.Store
	Generator generator.Generator
	Embedder  memory.Embedder
	Renderer  insight.Renderer
	Lease     lease.Lease
	Logger    *slog.Logger
}

// Build wires the engine components. The returned Orchestrator is also used
// by the scheduler for scheduled check-ins.
func Build(deps Deps) (*Companion, *agent.Orchestrator) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	retrier := retry.New(retry.Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		Timeout:     cfg.RequestTimeout,
	}, logger)
	prompts := prompt.NewBuilder()
	store := deps.Store

	settingsSvc := settings.NewService(store.Settings, retrier)
	composer := checkin.NewComposer(deps.Generator, prompts, store.Memories, retrier, cfg.MemoryTopK, logger)
	writer := checkin.NewWriter(store.Checkins, retrier, cfg.CheckinDedupWindow)
	updater := memory.NewUpdater(
		memory.NewExtractor(deps.Generator, prompts, logger),
		store.Memories, deps.Embedder, retrier, cfg.SimilarityThreshold, logger,
	)

	policy := trigger.DefaultPolicy()
	if len(cfg.StreakMilestones) > 0 {
		policy.StreakMilestones = cfg.StreakMilestones
	}
	if len(cfg.EntryMilestones) > 0 {
		policy.EntryMilestones = cfg.EntryMilestones
	}

	orchestrator := agent.New(agent.Config{
		Settings:   settingsSvc,
		Evaluators: trigger.Evaluators(policy),
		Composer:   composer,
		Writer:     writer,
		Memory:     updater,
		Lease:      deps.Lease,
		LeaseTTL:   cfg.LeaseTTL,
		Logger:     logger,
	})
	insights := insight.NewService(
		insight.NewSynthesizer(deps.Generator, prompts, logger),
		store.Insights, retrier, deps.Renderer, logger,
	)
	return New(orchestrator, settingsSvc, insights, store.Checkins, retrier, logger), orchestrator
}
