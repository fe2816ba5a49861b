// Package settings owns the per-user companion preferences.
package settings

import (
	"context"
	"time"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/retry"
	"github.com/easeaico/memorify/internal/types"
)

// Repository persists settings.
type Repository interface {
	Get(ctx context.Context, userID string) (*types.AgentSettings, error)
	Create(ctx context.Context, settings types.AgentSettings) (*types.AgentSettings, error)
	Save(ctx context.Context, settings types.AgentSettings) error
	SetLastCheckIn(ctx context.Context, userID string, at time.Time) error
}

// Service reads and updates settings, creating defaults on first access.
type Service struct {
	repo    Repository
	retrier *retry.Retrier
}

// NewService creates a settings Service.
func NewService(repo Repository, retrier *retry.Retrier) *Service {
	return &Service{repo: repo, retrier: retrier}
}

// Get returns the user's settings, creating the defaults when none exist.
func (s *Service) Get(ctx context.Context, id types.Identity) (types.AgentSettings, error) {
	if !id.Valid() {
		return types.AgentSettings{}, apperr.Unauthenticated("get_settings")
	}
	current, err := retry.Do(ctx, s.retrier, "get_settings", func(ctx context.Context) (*types.AgentSettings, error) {
		return s.repo.Get(ctx, id.UserID)
	})
	if err != nil {
		return types.AgentSettings{}, err
	}
	if current != nil {
		return *current, nil
	}

	created, err := retry.Do(ctx, s.retrier, "create_settings", func(ctx context.Context) (*types.AgentSettings, error) {
		return s.repo.Create(ctx, types.DefaultSettings(id.UserID))
	})
	if err != nil {
		return types.AgentSettings{}, err
	}
	if created == nil {
		return types.AgentSettings{}, apperr.Errorf(apperr.KindNotFound, "create_settings", "settings missing after create")
	}
	return *created, nil
}

// Update validates and applies a partial change. Invalid input leaves the
// stored settings untouched.
func (s *Service) Update(ctx context.Context, id types.Identity, update types.SettingsUpdate) (types.AgentSettings, error) {
	const op = "update_settings"
	if !id.Valid() {
		return types.AgentSettings{}, apperr.Unauthenticated(op)
	}
	if err := types.Validate(op, update); err != nil {
		return types.AgentSettings{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return types.AgentSettings{}, err
	}
	next := update.Apply(current)
	if err := types.Validate(op, next); err != nil {
		return types.AgentSettings{}, err
	}
	if err := s.retrier.Run(ctx, "save_settings", func(ctx context.Context) error {
		return s.repo.Save(ctx, next)
	}); err != nil {
		return types.AgentSettings{}, err
	}
	return next, nil
}

// RecordCheckIn stamps the time of the latest raised check-in.
func (s *Service) RecordCheckIn(ctx context.Context, id types.Identity, at time.Time) error {
	if !id.Valid() {
		return apperr.Unauthenticated("set_last_check_in")
	}
	return s.retrier.Run(ctx, "set_last_check_in", func(ctx context.Context) error {
		return s.repo.SetLastCheckIn(ctx, id.UserID, at)
	})
}
