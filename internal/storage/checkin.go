package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/types"
)

type checkinModel struct {
	ID               string `gorm:"primaryKey"`
	UserID           string `gorm:"index:idx_checkins_owner_trigger"`
	TriggerType      string `gorm:"index:idx_checkins_owner_trigger"`
	Message          string
	EmotionalContext string
	IsRead           bool
	CreatedAt        time.Time `gorm:"index:idx_checkins_owner_trigger"`
	RespondedAt      *time.Time
}

func (checkinModel) TableName() string {
	return "agent_checkins"
}

// CheckinRepo accesses check-in data.
type CheckinRepo struct {
	db *gorm.DB
}

// NewCheckinRepo returns a CheckinRepo.
func NewCheckinRepo(db *gorm.DB) *CheckinRepo {
	return &CheckinRepo{db: db}
}

// CountSince counts check-ins of one trigger type created at or after since.
func (r *CheckinRepo) CountSince(ctx context.Context, userID string, trigger types.TriggerType, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&checkinModel{}).
		Where("user_id = ? AND trigger_type = ? AND created_at >= ?", userID, string(trigger), since.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, classify("count_checkins", err)
	}
	return count, nil
}

// Create validates and inserts a check-in.
func (r *CheckinRepo) Create(ctx context.Context, checkin *types.AgentCheckin) error {
	if err := types.Validate("create_checkin", checkin); err != nil {
		return err
	}
	if checkin.ID == "" {
		checkin.ID = uuid.NewString()
	}
	if checkin.CreatedAt.IsZero() {
		checkin.CreatedAt = time.Now()
	}
	checkin.CreatedAt = checkin.CreatedAt.UTC()

	record := checkinModel{
		ID:               checkin.ID,
		UserID:           checkin.UserID,
		TriggerType:      string(checkin.TriggerType),
		Message:          checkin.Message,
		EmotionalContext: checkin.EmotionalContext,
		IsRead:           checkin.IsRead,
		CreatedAt:        checkin.CreatedAt,
		RespondedAt:      checkin.RespondedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return classify("create_checkin", err)
	}
	return nil
}

// ListPending returns unread check-ins, newest first.
func (r *CheckinRepo) ListPending(ctx context.Context, userID string, limit int) ([]types.AgentCheckin, error) {
	var records []checkinModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, false).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, classify("list_pending_checkins", err)
	}
	results := make([]types.AgentCheckin, 0, len(records))
	for _, record := range records {
		results = append(results, checkinFromModel(record))
	}
	return results, nil
}

// MarkRead flags one of the user's check-ins as read.
func (r *CheckinRepo) MarkRead(ctx context.Context, userID, id string) error {
	return r.update(ctx, "mark_checkin_read", userID, id, map[string]any{"is_read": true})
}

// MarkResponded records that the user replied to a check-in. Responding also marks it read.
func (r *CheckinRepo) MarkResponded(ctx context.Context, userID, id string, at time.Time) error {
	return r.update(ctx, "mark_checkin_responded", userID, id, map[string]any{
		"is_read":      true,
		"responded_at": at.UTC(),
	})
}

func (r *CheckinRepo) update(ctx context.Context, op, userID, id string, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&checkinModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if result.Error != nil {
		return classify(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Errorf(apperr.KindNotFound, op, "check-in %s not found", id)
	}
	return nil
}

func checkinFromModel(model checkinModel) types.AgentCheckin {
	return types.AgentCheckin{
		ID:               model.ID,
		UserID:           model.UserID,
		TriggerType:      types.TriggerType(model.TriggerType),
		Message:          model.Message,
		EmotionalContext: model.EmotionalContext,
		IsRead:           model.IsRead,
		CreatedAt:        model.CreatedAt,
		RespondedAt:      model.RespondedAt,
	}
}
