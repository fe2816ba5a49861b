package memory

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/retry"
	"github.com/easeaico/memorify/internal/types"
)

const (
	// RecentEntries is how many of the newest entries are mined per run.
	RecentEntries = 5
	// MinTextLength is the shortest user text worth mining.
	MinTextLength = 50
)

// Repository persists memories.
type Repository interface {
	Create(ctx context.Context, mem *types.AgentMemory) error
	FindByContent(ctx context.Context, userID string, kind types.MemoryKind, content string) (*types.AgentMemory, error)
	FindSimilar(ctx context.Context, userID string, embedding []float32, threshold float64) (*types.AgentMemory, error)
	Touch(ctx context.Context, userID string, ids []string, at time.Time) error
}

// UpdateReport summarizes one updater run.
type UpdateReport struct {
	Scanned  int
	Created  int
	Reused   int
	Rejected int
}

// Updater mines the newest entries and persists new memories.
type Updater struct {
	extractor *Extractor
	repo      Repository
	embedder  Embedder
	retrier   *retry.Retrier
	threshold float64
	logger    *slog.Logger
	nowFunc   func() time.Time
}

// NewUpdater creates an Updater. embedder may be nil, which disables similarity matching.
func NewUpdater(extractor *Extractor, repo Repository, embedder Embedder, retrier *retry.Retrier, threshold float64, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{
		extractor: extractor,
		repo:      repo,
		embedder:  embedder,
		retrier:   retrier,
		threshold: threshold,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Update processes the newest entries of a newest-first history.
// Memories already known are touched instead of duplicated.
func (u *Updater) Update(ctx context.Context, id types.Identity, entries []types.DiaryEntry) (UpdateReport, error) {
	var report UpdateReport
	if !id.Valid() {
		return report, apperr.Unauthenticated("update_memories")
	}
	recent := types.SortNewestFirst(entries)
	if len(recent) > RecentEntries {
		recent = recent[:RecentEntries]
	}

	for _, entry := range recent {
		text := entry.UserText()
		if len([]rune(text)) < MinTextLength {
			continue
		}
		report.Scanned++
		for _, candidate := range u.extractor.Extract(ctx, text, entry.Emotion.Primary) {
			reused, err := u.persist(ctx, id, entry, candidate)
			switch {
			case err != nil && apperr.Is(err, apperr.KindValidation):
				report.Rejected++
				apperr.LogWithSeverity(ctx, u.logger, err, apperr.SeverityLow, "save_memory", "user_id", id.UserID, "entry_id", entry.ID)
			case err != nil:
				return report, err
			case reused:
				report.Reused++
			default:
				report.Created++
			}
		}
	}
	u.logger.Debug("memory update finished",
		"user_id", id.UserID,
		"scanned", report.Scanned,
		"created", report.Created,
		"reused", report.Reused,
	)
	return report, nil
}

func (u *Updater) persist(ctx context.Context, id types.Identity, entry types.DiaryEntry, candidate Candidate) (bool, error) {
	existing, err := retry.Do(ctx, u.retrier, "find_memory", func(ctx context.Context) (*types.AgentMemory, error) {
		return u.repo.FindByContent(ctx, id.UserID, candidate.Kind, candidate.Content)
	})
	if err != nil {
		return false, err
	}

	var embedding []float32
	if existing == nil && u.embedder != nil {
		embedding, err = retry.Do(ctx, u.retrier, "embed_memory", func(ctx context.Context) ([]float32, error) {
			return u.embedder.EmbedDocument(ctx, candidate.Content)
		})
		if err != nil {
			apperr.LogWithSeverity(ctx, u.logger, err, apperr.SeverityLow, "embed_memory", "user_id", id.UserID)
			embedding = nil
		} else if len(embedding) > 0 {
			existing, err = retry.Do(ctx, u.retrier, "find_similar_memory", func(ctx context.Context) (*types.AgentMemory, error) {
				return u.repo.FindSimilar(ctx, id.UserID, embedding, u.threshold)
			})
			if err != nil {
				return false, err
			}
		}
	}

	now := u.nowFunc()
	if existing != nil {
		return true, u.retrier.Run(ctx, "touch_memory", func(ctx context.Context) error {
			return u.repo.Touch(ctx, id.UserID, []string{existing.ID}, now)
		})
	}

	var emotional []string
	if entry.Emotion.Primary != "" {
		emotional = []string{string(entry.Emotion.Primary)}
	}
	mem := &types.AgentMemory{
		UserID:           id.UserID,
		Kind:             candidate.Kind,
		Content:          candidate.Content,
		EmotionalContext: emotional,
		Importance:       clamp01(candidate.Importance),
		CreatedAt:        now,
		LastAccessedAt:   now,
		Embedding:        embedding,
	}
	return false, u.retrier.Run(ctx, "save_memory", func(ctx context.Context) error {
		return u.repo.Create(ctx, mem)
	})
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
