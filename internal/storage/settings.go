package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/memorify/internal/types"
)

type settingsModel struct {
	UserID             string `gorm:"primaryKey"`
	AgenticModeEnabled bool
	PersonalityType    string
	CheckInFrequency   string
	ProactiveInsights  bool
	VisualGeneration   bool
	LastCheckIn        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (settingsModel) TableName() string {
	return "agent_settings"
}

// SettingsRepo accesses per-user agent settings.
type SettingsRepo struct {
	db *gorm.DB
}

// NewSettingsRepo returns a SettingsRepo.
func NewSettingsRepo(db *gorm.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the settings for userID, or nil when none exist yet.
func (r *SettingsRepo) Get(ctx context.Context, userID string) (*types.AgentSettings, error) {
	var model settingsModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get_settings", err)
	}
	settings := settingsFromModel(model)
	return &settings, nil
}

// Create inserts settings unless a row already exists and returns the stored row.
func (r *SettingsRepo) Create(ctx context.Context, settings types.AgentSettings) (*types.AgentSettings, error) {
	model := settingsToModel(settings)
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error; err != nil {
		return nil, classify("create_settings", err)
	}
	return r.Get(ctx, settings.UserID)
}

// Save writes every field of settings.
func (r *SettingsRepo) Save(ctx context.Context, settings types.AgentSettings) error {
	model := settingsToModel(settings)
	model.UpdatedAt = time.Now().UTC()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = model.UpdatedAt
	}
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return classify("save_settings", err)
	}
	return nil
}

// SetLastCheckIn records when the latest check-in was raised.
func (r *SettingsRepo) SetLastCheckIn(ctx context.Context, userID string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&settingsModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"last_check_in": at.UTC(), "updated_at": time.Now().UTC()}).Error
	return classify("set_last_check_in", err)
}

// ListEnabled returns the owners with agentic mode turned on.
func (r *SettingsRepo) ListEnabled(ctx context.Context) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).Model(&settingsModel{}).
		Where("agentic_mode_enabled = ?", true).
		Order("user_id ASC").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, classify("list_enabled_settings", err)
	}
	return userIDs, nil
}

func settingsToModel(s types.AgentSettings) settingsModel {
	var last *time.Time
	if s.LastCheckIn != nil {
		t := s.LastCheckIn.UTC()
		last = &t
	}
	return settingsModel{
		UserID:             s.UserID,
		AgenticModeEnabled: s.AgenticModeEnabled,
		PersonalityType:    string(s.PersonalityType),
		CheckInFrequency:   string(s.CheckInFrequency),
		ProactiveInsights:  s.ProactiveInsights,
		VisualGeneration:   s.VisualGeneration,
		LastCheckIn:        last,
		CreatedAt:          s.CreatedAt.UTC(),
		UpdatedAt:          s.UpdatedAt.UTC(),
	}
}

func settingsFromModel(model settingsModel) types.AgentSettings {
	return types.AgentSettings{
		UserID:             model.UserID,
		AgenticModeEnabled: model.AgenticModeEnabled,
		PersonalityType:    types.Personality(model.PersonalityType),
		CheckInFrequency:   types.Frequency(model.CheckInFrequency),
		ProactiveInsights:  model.ProactiveInsights,
		VisualGeneration:   model.VisualGeneration,
		LastCheckIn:        model.LastCheckIn,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}
