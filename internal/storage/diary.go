package storage

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/easeaico/memorify/internal/types"
)

// diaryEntryModel maps to the diary_entries table owned by the journaling app.
// The companion only reads it.
type diaryEntryModel struct {
	ID           string    `gorm:"primaryKey"`
	UserID       string    `gorm:"index:idx_diary_owner_created"`
	CreatedAt    time.Time `gorm:"index:idx_diary_owner_created"`
	ChatMessages datatypes.JSONSlice[types.ChatTurn]
	Narrative    string
	Emotion      datatypes.JSONType[types.EmotionRecord]
	PhotoURL     string
	Summary      string
}

func (diaryEntryModel) TableName() string {
	return "diary_entries"
}

// DiaryRepo reads diary entries.
type DiaryRepo struct {
	db *gorm.DB
}

// NewDiaryRepo returns a DiaryRepo.
func NewDiaryRepo(db *gorm.DB) *DiaryRepo {
	return &DiaryRepo{db: db}
}

// ListRecent returns up to limit entries of the user, newest first.
func (r *DiaryRepo) ListRecent(ctx context.Context, userID string, limit int) ([]types.DiaryEntry, error) {
	var records []diaryEntryModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, classify("list_diary_entries", err)
	}
	entries := make([]types.DiaryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, types.DiaryEntry{
			ID:        record.ID,
			CreatedAt: record.CreatedAt,
			Chat:      []types.ChatTurn(record.ChatMessages),
			Narrative: record.Narrative,
			Emotion:   record.Emotion.Data(),
			PhotoURL:  record.PhotoURL,
			Summary:   record.Summary,
		})
	}
	return entries, nil
}
