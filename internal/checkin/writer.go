// Package checkin composes proactive check-in messages and writes them with duplicate suppression.
package checkin

import (
	"context"
	"time"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/retry"
	"github.com/easeaico/memorify/internal/types"
)

// Repository persists check-ins.
type Repository interface {
	CountSince(ctx context.Context, userID string, trigger types.TriggerType, since time.Time) (int64, error)
	Create(ctx context.Context, checkin *types.AgentCheckin) error
	ListPending(ctx context.Context, userID string, limit int) ([]types.AgentCheckin, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkResponded(ctx context.Context, userID, id string, at time.Time) error
}

// DefaultWindow is the rolling duplicate suppression window.
const DefaultWindow = 24 * time.Hour

// Writer persists check-ins at most once per (owner, trigger type) per window.
// The check and the insert are not transactional; concurrent writers for the
// same owner can both pass the check.
type Writer struct {
	repo    Repository
	retrier *retry.Retrier
	window  time.Duration
	nowFunc func() time.Time
}

// NewWriter creates a Writer. A non-positive window uses DefaultWindow.
func NewWriter(repo Repository, retrier *retry.Retrier, window time.Duration) *Writer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Writer{repo: repo, retrier: retrier, window: window, nowFunc: time.Now}
}

// Check returns a duplicate error when a check-in of this trigger type already exists in the window.
func (w *Writer) Check(ctx context.Context, id types.Identity, trigger types.TriggerType) error {
	if !id.Valid() {
		return apperr.Unauthenticated("check_duplicate")
	}
	since := w.nowFunc().Add(-w.window)
	count, err := retry.Do(ctx, w.retrier, "count_checkins", func(ctx context.Context) (int64, error) {
		return w.repo.CountSince(ctx, id.UserID, trigger, since)
	})
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Duplicate("check_duplicate", string(trigger))
	}
	return nil
}

// Write checks the window and inserts the check-in owned by id.
func (w *Writer) Write(ctx context.Context, id types.Identity, checkin *types.AgentCheckin) error {
	if err := w.Check(ctx, id, checkin.TriggerType); err != nil {
		return err
	}
	checkin.UserID = id.UserID
	checkin.IsRead = false
	if checkin.CreatedAt.IsZero() {
		checkin.CreatedAt = w.nowFunc()
	}
	return w.retrier.Run(ctx, "create_checkin", func(ctx context.Context) error {
		return w.repo.Create(ctx, checkin)
	})
}
