// Package companion exposes the caller-facing operations of the companion engine.
// Every operation has a Safe variant that never fails and returns a {data, error} pair.
package companion

import (
	"context"
	"log/slog"
	"time"

	"github.com/easeaico/memorify/internal/agent"
	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/checkin"
	"github.com/easeaico/memorify/internal/insight"
	"github.com/easeaico/memorify/internal/retry"
	"github.com/easeaico/memorify/internal/settings"
	"github.com/easeaico/memorify/internal/types"
)

const defaultPendingLimit = 20

// Companion ties the engine components together for one process.
type Companion struct {
	orchestrator *agent.Orchestrator
	settings     *settings.Service
	insights     *insight.Service
	checkins     checkin.Repository
	retrier      *retry.Retrier
	logger       *slog.Logger
	nowFunc      func() time.Time
}

// New creates a Companion.
func New(orchestrator *agent.Orchestrator, settings *settings.Service, insights *insight.Service, checkins checkin.Repository, retrier *retry.Retrier, logger *slog.Logger) *Companion {
	if logger == nil {
		logger = slog.Default()
	}
	return &Companion{
		orchestrator: orchestrator,
		settings:     settings,
		insights:     insights,
		checkins:     checkins,
		retrier:      retrier,
		logger:       logger,
		nowFunc:      time.Now,
	}
}

// RunAgentLoop evaluates the triggers and updates memories for the given entries.
func (c *Companion) RunAgentLoop(ctx context.Context, id types.Identity, entries []types.DiaryEntry) (*agent.RunReport, error) {
	return c.orchestrator.Run(ctx, id, entries)
}

// PendingCheckins returns unread check-ins, newest first.
func (c *Companion) PendingCheckins(ctx context.Context, id types.Identity, limit int) ([]types.AgentCheckin, error) {
	if !id.Valid() {
		return nil, apperr.Unauthenticated("list_pending_checkins")
	}
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	return retry.Do(ctx, c.retrier, "list_pending_checkins", func(ctx context.Context) ([]types.AgentCheckin, error) {
		return c.checkins.ListPending(ctx, id.UserID, limit)
	})
}

// MarkCheckinRead flags a check-in as read.
func (c *Companion) MarkCheckinRead(ctx context.Context, id types.Identity, checkinID string) error {
	if !id.Valid() {
		return apperr.Unauthenticated("mark_checkin_read")
	}
	return c.retrier.Run(ctx, "mark_checkin_read", func(ctx context.Context) error {
		return c.checkins.MarkRead(ctx, id.UserID, checkinID)
	})
}

// RespondCheckin records that the user answered a check-in.
func (c *Companion) RespondCheckin(ctx context.Context, id types.Identity, checkinID string) error {
	if !id.Valid() {
		return apperr.Unauthenticated("respond_checkin")
	}
	at := c.nowFunc()
	return c.retrier.Run(ctx, "respond_checkin", func(ctx context.Context) error {
		return c.checkins.MarkResponded(ctx, id.UserID, checkinID, at)
	})
}

// Settings returns the user's settings, creating defaults on first access.
func (c *Companion) Settings(ctx context.Context, id types.Identity) (types.AgentSettings, error) {
	return c.settings.Get(ctx, id)
}

// UpdateSettings applies a validated partial change.
func (c *Companion) UpdateSettings(ctx context.Context, id types.Identity, update types.SettingsUpdate) (types.AgentSettings, error) {
	return c.settings.Update(ctx, id, update)
}

// GenerateWeeklyInsight synthesizes and stores this week's insight.
func (c *Companion) GenerateWeeklyInsight(ctx context.Context, id types.Identity, entries []types.DiaryEntry) (*types.WeeklyInsight, error) {
	s, err := c.settings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.insights.Generate(ctx, id, entries, s.VisualGeneration)
}

// GenerateWeekInsight synthesizes and stores the insight of the week containing at.
func (c *Companion) GenerateWeekInsight(ctx context.Context, id types.Identity, entries []types.DiaryEntry, at time.Time) (*types.WeeklyInsight, error) {
	s, err := c.settings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.insights.GenerateWeek(ctx, id, entries, s.VisualGeneration, at)
}

// RecentInsights returns the latest insights, newest first.
func (c *Companion) RecentInsights(ctx context.Context, id types.Identity, limit int) ([]types.WeeklyInsight, error) {
	return c.insights.Recent(ctx, id, limit)
}

// SafeRunAgentLoop is RunAgentLoop returning a nil report on failure.
func (c *Companion) SafeRunAgentLoop(ctx context.Context, id types.Identity, entries []types.DiaryEntry) apperr.Result[*agent.RunReport] {
	return apperr.Safe(ctx, c.logger, "run_agent_loop", (*agent.RunReport)(nil), func(ctx context.Context) (*agent.RunReport, error) {
		return c.RunAgentLoop(ctx, id, entries)
	})
}

// SafePendingCheckins is PendingCheckins returning fallback on failure.
func (c *Companion) SafePendingCheckins(ctx context.Context, id types.Identity, limit int, fallback []types.AgentCheckin) apperr.Result[[]types.AgentCheckin] {
	return apperr.Safe(ctx, c.logger, "list_pending_checkins", fallback, func(ctx context.Context) ([]types.AgentCheckin, error) {
		return c.PendingCheckins(ctx, id, limit)
	})
}

// SafeMarkCheckinRead reports whether the check-in was marked read.
func (c *Companion) SafeMarkCheckinRead(ctx context.Context, id types.Identity, checkinID string) apperr.Result[bool] {
	return apperr.Safe(ctx, c.logger, "mark_checkin_read", false, func(ctx context.Context) (bool, error) {
		return true, c.MarkCheckinRead(ctx, id, checkinID)
	})
}

// SafeRespondCheckin reports whether the response was recorded.
func (c *Companion) SafeRespondCheckin(ctx context.Context, id types.Identity, checkinID string) apperr.Result[bool] {
	return apperr.Safe(ctx, c.logger, "respond_checkin", false, func(ctx context.Context) (bool, error) {
		return true, c.RespondCheckin(ctx, id, checkinID)
	})
}

// SafeSettings is Settings returning fallback on failure.
func (c *Companion) SafeSettings(ctx context.Context, id types.Identity, fallback types.AgentSettings) apperr.Result[types.AgentSettings] {
	return apperr.Safe(ctx, c.logger, "get_settings", fallback, func(ctx context.Context) (types.AgentSettings, error) {
		return c.Settings(ctx, id)
	})
}

// SafeUpdateSettings is UpdateSettings returning fallback on failure.
func (c *Companion) SafeUpdateSettings(ctx context.Context, id types.Identity, update types.SettingsUpdate, fallback types.AgentSettings) apperr.Result[types.AgentSettings] {
	return apperr.Safe(ctx, c.logger, "update_settings", fallback, func(ctx context.Context) (types.AgentSettings, error) {
		return c.UpdateSettings(ctx, id, update)
	})
}

// SafeGenerateWeeklyInsight is GenerateWeeklyInsight returning nil on failure.
func (c *Companion) SafeGenerateWeeklyInsight(ctx context.Context, id types.Identity, entries []types.DiaryEntry) apperr.Result[*types.WeeklyInsight] {
	return apperr.Safe(ctx, c.logger, "generate_weekly_insight", (*types.WeeklyInsight)(nil), func(ctx context.Context) (*types.WeeklyInsight, error) {
		return c.GenerateWeeklyInsight(ctx, id, entries)
	})
}

// SafeRecentInsights is RecentInsights returning fallback on failure.
func (c *Companion) SafeRecentInsights(ctx context.Context, id types.Identity, limit int, fallback []types.WeeklyInsight) apperr.Result[[]types.WeeklyInsight] {
	return apperr.Safe(ctx, c.logger, "list_weekly_insights", fallback, func(ctx context.Context) ([]types.WeeklyInsight, error) {
		return c.RecentInsights(ctx, id, limit)
	})
}
