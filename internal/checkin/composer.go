package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/generator"
	"github.com/easeaico/memorify/internal/prompt"
	"github.com/easeaico/memorify/internal/retry"
	"github.com/easeaico/memorify/internal/trigger"
	"github.com/easeaico/memorify/internal/types"
)

// MemoryReader supplies the memories consulted while composing a message.
type MemoryReader interface {
	TopByImportance(ctx context.Context, userID string, limit int) ([]types.AgentMemory, error)
	Touch(ctx context.Context, userID string, ids []string, at time.Time) error
}

// Composer produces the check-in message text. It never fails: generation
// errors fall back to fixed templates.
type Composer struct {
	gen         generator.Generator
	prompts     *prompt.Builder
	memories    MemoryReader
	retrier     *retry.Retrier
	memoryLimit int
	logger      *slog.Logger
	nowFunc     func() time.Time
}

// NewComposer creates a Composer. memories may be nil; a nil generator always uses the templates.
func NewComposer(gen generator.Generator, prompts *prompt.Builder, memories MemoryReader, retrier *retry.Retrier, memoryLimit int, logger *slog.Logger) *Composer {
	if memoryLimit <= 0 {
		memoryLimit = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		gen:         gen,
		prompts:     prompts,
		memories:    memories,
		retrier:     retrier,
		memoryLimit: memoryLimit,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// Compose returns the message for candidate in the user's configured personality.
func (c *Composer) Compose(ctx context.Context, id types.Identity, settings types.AgentSettings, candidate trigger.Candidate) string {
	if c.gen == nil {
		return Fallback(candidate)
	}
	memories := c.loadMemories(ctx, id)

	req, err := c.prompts.Checkin(prompt.CheckinInput{
		Personality: settings.PersonalityType,
		Trigger:     candidate.Trigger,
		Context:     candidate.Context,
		Memories:    memories,
	})
	if err == nil {
		var text string
		text, err = c.gen.Generate(ctx, req)
		if err == nil {
			c.touchMemories(ctx, id, memories)
			return text
		}
	} else {
		err = apperr.E(apperr.KindInternal, "build_checkin_prompt", err)
	}
	apperr.Log(ctx, c.logger, err, "compose_checkin",
		"user_id", id.UserID,
		"trigger", string(candidate.Trigger),
		"fallback", true,
	)
	return Fallback(candidate)
}

func (c *Composer) loadMemories(ctx context.Context, id types.Identity) []types.AgentMemory {
	if c.memories == nil {
		return nil
	}
	memories, err := retry.Do(ctx, c.retrier, "load_memories", func(ctx context.Context) ([]types.AgentMemory, error) {
		return c.memories.TopByImportance(ctx, id.UserID, c.memoryLimit)
	})
	if err != nil {
		apperr.LogWithSeverity(ctx, c.logger, err, apperr.SeverityLow, "load_memories", "user_id", id.UserID)
		return nil
	}
	return memories
}

func (c *Composer) touchMemories(ctx context.Context, id types.Identity, memories []types.AgentMemory) {
	if c.memories == nil || len(memories) == 0 {
		return
	}
	ids := make([]string, 0, len(memories))
	for _, m := range memories {
		ids = append(ids, m.ID)
	}
	if err := c.memories.Touch(ctx, id.UserID, ids, c.nowFunc()); err != nil {
		apperr.LogWithSeverity(ctx, c.logger, err, apperr.SeverityLow, "touch_memories", "user_id", id.UserID, "count", len(ids))
	}
}

// Fallback returns the fixed template for the candidate's trigger kind.
func Fallback(candidate trigger.Candidate) string {
	switch candidate.Trigger {
	case types.TriggerInactivity:
		return fmt.Sprintf("Hey, it's been %d days since your last entry. I've been thinking about you. How have things been?", candidate.DaysInactive)
	case types.TriggerEmotionalPattern:
		return "I've noticed your last few entries have felt heavy. I'm here whenever you want to talk about what's on your mind."
	case types.TriggerMilestone:
		return fmt.Sprintf("You've reached a milestone: %s! Showing up for yourself like this really matters.", candidate.Context)
	case types.TriggerScheduled:
		return "Your weekly reflection is ready. Want to take a look at how your week unfolded?"
	default:
		return "Just checking in. How are you feeling today?"
	}
}
