package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/easeaico/memorify/internal/types"
)

type insightModel struct {
	ID                  string `gorm:"primaryKey"`
	UserID              string `gorm:"index"`
	WeekStart           time.Time
	WeekEnd             time.Time
	DominantEmotions    datatypes.JSONSlice[string]
	EmotionDistribution datatypes.JSONType[map[string]int]
	Themes              datatypes.JSONSlice[string]
	GrowthObservations  datatypes.JSONSlice[string]
	RecommendedActions  datatypes.JSONSlice[string]
	MoodTrend           string
	VisualPrompt        string
	VisualURL           string
	CreatedAt           time.Time
}

func (insightModel) TableName() string {
	return "weekly_insights"
}

// InsightRepo accesses weekly insight data.
type InsightRepo struct {
	db *gorm.DB
}

// NewInsightRepo returns an InsightRepo.
func NewInsightRepo(db *gorm.DB) *InsightRepo {
	return &InsightRepo{db: db}
}

// Create inserts an insight. Overlapping weeks are allowed.
func (r *InsightRepo) Create(ctx context.Context, insight *types.WeeklyInsight) error {
	if insight.ID == "" {
		insight.ID = uuid.NewString()
	}
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = time.Now()
	}
	insight.CreatedAt = insight.CreatedAt.UTC()

	distribution := make(map[string]int, len(insight.EmotionDistribution))
	for emotion, count := range insight.EmotionDistribution {
		distribution[string(emotion)] = count
	}
	record := insightModel{
		ID:                  insight.ID,
		UserID:              insight.UserID,
		WeekStart:           insight.WeekStart.UTC(),
		WeekEnd:             insight.WeekEnd.UTC(),
		DominantEmotions:    datatypes.NewJSONSlice(emotionStrings(insight.DominantEmotions)),
		EmotionDistribution: datatypes.NewJSONType(distribution),
		Themes:              datatypes.NewJSONSlice(insight.Themes),
		GrowthObservations:  datatypes.NewJSONSlice(insight.GrowthObservations),
		RecommendedActions:  datatypes.NewJSONSlice(insight.RecommendedActions),
		MoodTrend:           string(insight.MoodTrend),
		VisualPrompt:        insight.VisualPrompt,
		VisualURL:           insight.VisualURL,
		CreatedAt:           insight.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return classify("create_insight", err)
	}
	return nil
}

// ListRecent returns the user's insights, newest first.
func (r *InsightRepo) ListRecent(ctx context.Context, userID string, limit int) ([]types.WeeklyInsight, error) {
	var records []insightModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, classify("list_insights", err)
	}
	results := make([]types.WeeklyInsight, 0, len(records))
	for _, record := range records {
		results = append(results, insightFromModel(record))
	}
	return results, nil
}

func insightFromModel(model insightModel) types.WeeklyInsight {
	distribution := make(map[types.Emotion]int)
	for emotion, count := range model.EmotionDistribution.Data() {
		distribution[types.Emotion(emotion)] = count
	}
	dominant := make([]types.Emotion, 0, len(model.DominantEmotions))
	for _, emotion := range model.DominantEmotions {
		dominant = append(dominant, types.Emotion(emotion))
	}
	return types.WeeklyInsight{
		ID:                  model.ID,
		UserID:              model.UserID,
		WeekStart:           model.WeekStart,
		WeekEnd:             model.WeekEnd,
		DominantEmotions:    dominant,
		EmotionDistribution: distribution,
		Themes:              []string(model.Themes),
		GrowthObservations:  []string(model.GrowthObservations),
		RecommendedActions:  []string(model.RecommendedActions),
		MoodTrend:           types.MoodTrend(model.MoodTrend),
		VisualPrompt:        model.VisualPrompt,
		VisualURL:           model.VisualURL,
		CreatedAt:           model.CreatedAt,
	}
}

func emotionStrings(emotions []types.Emotion) []string {
	out := make([]string, 0, len(emotions))
	for _, e := range emotions {
		out = append(out, string(e))
	}
	return out
}
