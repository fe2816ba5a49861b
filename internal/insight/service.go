package insight

import (
	"context"
	"log/slog"
	"time"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/retry"
	"github.com/easeaico/memorify/internal/types"
)

// Repository persists weekly insights.
type Repository interface {
	Create(ctx context.Context, insight *types.WeeklyInsight) error
	ListRecent(ctx context.Context, userID string, limit int) ([]types.WeeklyInsight, error)
}

// Renderer turns a visual prompt into a viewable image reference.
type Renderer interface {
	Render(ctx context.Context, userID, prompt string) (string, error)
}

// Service generates, stores and lists weekly insights.
type Service struct {
	synth    *Synthesizer
	repo     Repository
	retrier  *retry.Retrier
	renderer Renderer
	logger   *slog.Logger
}

// NewService creates a Service. renderer may be nil.
func NewService(synth *Synthesizer, repo Repository, retrier *retry.Retrier, renderer Renderer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{synth: synth, repo: repo, retrier: retrier, renderer: renderer, logger: logger}
}

// Generate synthesizes this week's insight and stores it. The image is
// rendered only when visual is set; a rendering failure leaves VisualURL empty.
func (s *Service) Generate(ctx context.Context, id types.Identity, entries []types.DiaryEntry, visual bool) (*types.WeeklyInsight, error) {
	return s.GenerateWeek(ctx, id, entries, visual, s.synth.nowFunc())
}

// GenerateWeek is Generate for the week containing at.
func (s *Service) GenerateWeek(ctx context.Context, id types.Identity, entries []types.DiaryEntry, visual bool, at time.Time) (*types.WeeklyInsight, error) {
	insight, err := s.synth.SynthesizeWeek(ctx, id, entries, at)
	if err != nil {
		return nil, err
	}
	if visual && s.renderer != nil && insight.VisualPrompt != "" {
		url, err := s.renderer.Render(ctx, id.UserID, insight.VisualPrompt)
		if err != nil {
			apperr.Log(ctx, s.logger, err, "render_insight_visual", "user_id", id.UserID)
		} else {
			insight.VisualURL = url
		}
	}
	if err := s.retrier.Run(ctx, "save_weekly_insight", func(ctx context.Context) error {
		return s.repo.Create(ctx, insight)
	}); err != nil {
		return nil, err
	}
	s.logger.Info("weekly insight generated",
		"user_id", id.UserID,
		"week_start", insight.WeekStart,
		"mood_trend", string(insight.MoodTrend),
	)
	return insight, nil
}

// Recent returns the user's latest insights, newest first.
func (s *Service) Recent(ctx context.Context, id types.Identity, limit int) ([]types.WeeklyInsight, error) {
	if !id.Valid() {
		return nil, apperr.Unauthenticated("list_weekly_insights")
	}
	if limit <= 0 {
		limit = 4
	}
	return retry.Do(ctx, s.retrier, "list_weekly_insights", func(ctx context.Context) ([]types.WeeklyInsight, error) {
		return s.repo.ListRecent(ctx, id.UserID, limit)
	})
}
