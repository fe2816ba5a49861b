package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/easeaico/memorify/internal/types"
)

// memoryModel maps to the agent_memories table.
type memoryModel struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"index"`
	MemoryType string
	Content    string
	// EmotionalContext 存储为 JSON 数组，便于按情绪标签过滤。
	EmotionalContext datatypes.JSONSlice[string]
	// ImportanceScore is a 0-1 score, used in ranking.
	ImportanceScore float64
	// Embedding 仅在配置了向量模型时写入。
	Embedding    *pgvector.Vector `gorm:"type:vector(768)"`
	AccessCount  int
	LastAccessed time.Time
	CreatedAt    time.Time
}

func (memoryModel) TableName() string {
	return "agent_memories"
}

// MemoryRepo accesses memory data.
type MemoryRepo struct {
	db *gorm.DB
}

// NewMemoryRepo returns a MemoryRepo.
func NewMemoryRepo(db *gorm.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

// Create validates mem and inserts it. Invalid kinds or scores never reach the table.
func (r *MemoryRepo) Create(ctx context.Context, mem *types.AgentMemory) error {
	if err := types.Validate("create_memory", mem); err != nil {
		return err
	}
	now := time.Now().UTC()
	if mem.ID == "" {
		mem.ID = uuid.NewString()
	}
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = now
	}
	if mem.LastAccessedAt.IsZero() {
		mem.LastAccessedAt = mem.CreatedAt
	}

	var vector *pgvector.Vector
	if len(mem.Embedding) > 0 {
		v := pgvector.NewVector(mem.Embedding)
		vector = &v
	}
	record := memoryModel{
		ID:               mem.ID,
		UserID:           mem.UserID,
		MemoryType:       string(mem.Kind),
		Content:          mem.Content,
		EmotionalContext: datatypes.NewJSONSlice(mem.EmotionalContext),
		ImportanceScore:  mem.Importance,
		Embedding:        vector,
		AccessCount:      mem.AccessCount,
		LastAccessed:     mem.LastAccessedAt.UTC(),
		CreatedAt:        mem.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return classify("create_memory", err)
	}
	return nil
}

// TopByImportance returns the user's memories ranked by importance, then recency.
func (r *MemoryRepo) TopByImportance(ctx context.Context, userID string, limit int) ([]types.AgentMemory, error) {
	var records []memoryModel
	err := r.db.WithContext(ctx).
		Omit("embedding").
		Where("user_id = ?", userID).
		Order("importance_score DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, classify("list_memories", err)
	}
	results := make([]types.AgentMemory, 0, len(records))
	for _, record := range records {
		results = append(results, memoryFromModel(record))
	}
	return results, nil
}

// FindByContent returns a memory of the given kind whose content matches case-insensitively, or nil.
func (r *MemoryRepo) FindByContent(ctx context.Context, userID string, kind types.MemoryKind, content string) (*types.AgentMemory, error) {
	var record memoryModel
	err := r.db.WithContext(ctx).
		Omit("embedding").
		Where("user_id = ? AND memory_type = ? AND LOWER(content) = ?", userID, string(kind), strings.ToLower(strings.TrimSpace(content))).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("find_memory", err)
	}
	mem := memoryFromModel(record)
	return &mem, nil
}

// FindSimilar returns the closest memory above threshold by cosine similarity.
// Only PostgreSQL with pgvector supports this; other dialects return nil.
func (r *MemoryRepo) FindSimilar(ctx context.Context, userID string, embedding []float32, threshold float64) (*types.AgentMemory, error) {
	if len(embedding) == 0 || r.db.Dialector.Name() != "postgres" {
		return nil, nil
	}
	vector := pgvector.NewVector(embedding)

	var records []memoryModel
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, user_id, memory_type, content, emotional_context, importance_score,
		       access_count, last_accessed, created_at
		FROM agent_memories
		WHERE user_id = ? AND embedding IS NOT NULL AND 1 - (embedding <=> ?) >= ?
		ORDER BY embedding <=> ?
		LIMIT 1`, userID, vector, threshold, vector).
		Scan(&records).Error
	if err != nil {
		return nil, classify("search_similar_memories", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	mem := memoryFromModel(records[0])
	return &mem, nil
}

// Touch increments the access counter of the given memories and stamps their access time.
func (r *MemoryRepo) Touch(ctx context.Context, userID string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&memoryModel{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Updates(map[string]any{
			"access_count":  gorm.Expr("access_count + 1"),
			"last_accessed": at.UTC(),
		}).Error
	return classify("touch_memories", err)
}

// memoryFromModel converts database model to domain struct.
func memoryFromModel(model memoryModel) types.AgentMemory {
	var embedding []float32
	if model.Embedding != nil {
		embedding = model.Embedding.Slice()
	}
	return types.AgentMemory{
		ID:               model.ID,
		UserID:           model.UserID,
		Kind:             types.MemoryKind(model.MemoryType),
		Content:          model.Content,
		EmotionalContext: []string(model.EmotionalContext),
		Importance:       model.ImportanceScore,
		CreatedAt:        model.CreatedAt,
		LastAccessedAt:   model.LastAccessed,
		AccessCount:      model.AccessCount,
		Embedding:        embedding,
	}
}
