package insight

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/generator"
	"github.com/easeaico/memorify/internal/prompt"
	"github.com/easeaico/memorify/internal/types"
)

const maxEntriesText = 12000

// Synthesizer builds the weekly insight for the current calendar week.
type Synthesizer struct {
	gen     generator.Generator
	prompts *prompt.Builder
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewSynthesizer creates a Synthesizer. A nil generator always uses the local fallback.
func NewSynthesizer(gen generator.Generator, prompts *prompt.Builder, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{gen: gen, prompts: prompts, logger: logger, nowFunc: time.Now}
}

// Synthesize returns a complete insight for the entries that fall in this week.
// It fails only when the week has no entries or the identity is missing.
func (s *Synthesizer) Synthesize(ctx context.Context, id types.Identity, entries []types.DiaryEntry) (*types.WeeklyInsight, error) {
	return s.SynthesizeWeek(ctx, id, entries, s.nowFunc())
}

// SynthesizeWeek is Synthesize for the week containing at.
func (s *Synthesizer) SynthesizeWeek(ctx context.Context, id types.Identity, entries []types.DiaryEntry, at time.Time) (*types.WeeklyInsight, error) {
	const op = "generate_weekly_insight"
	if !id.Valid() {
		return nil, apperr.Unauthenticated(op)
	}

	now := s.nowFunc()
	start, end := WeekRange(at)
	week := EntriesInRange(entries, start, end)
	if len(week) == 0 {
		return nil, apperr.NoEntries(op)
	}

	hist := Histogram(week)
	text := entriesText(week)
	body := Fallback(week, hist, text)
	body = s.generate(ctx, id, week, hist, text, start, end, body)

	return &types.WeeklyInsight{
		UserID:              id.UserID,
		WeekStart:           start,
		WeekEnd:             end,
		DominantEmotions:    body.DominantEmotions,
		EmotionDistribution: hist,
		Themes:              body.Themes,
		GrowthObservations:  body.GrowthObservations,
		RecommendedActions:  body.RecommendedActions,
		MoodTrend:           body.MoodTrend,
		VisualPrompt:        body.VisualPrompt,
		CreatedAt:           now,
	}, nil
}

func (s *Synthesizer) generate(ctx context.Context, id types.Identity, week []types.DiaryEntry, hist map[types.Emotion]int, text string, start, end time.Time, fallback Body) Body {
	if s.gen == nil {
		return fallback
	}
	req, err := s.prompts.Insight(prompt.InsightInput{
		Start:       start,
		End:         end,
		Count:       len(week),
		Histogram:   hist,
		EntriesText: text,
	})
	if err != nil {
		apperr.Log(ctx, s.logger, apperr.E(apperr.KindInternal, "build_insight_prompt", err), "generate_weekly_insight", "user_id", id.UserID)
		return fallback
	}

	raw, err := s.gen.Generate(ctx, req)
	if err != nil {
		apperr.Log(ctx, s.logger, err, "generate_weekly_insight",
			"user_id", id.UserID,
			"entries", len(week),
			"fallback", true,
		)
		return fallback
	}

	draft, err := Decode(raw)
	if err != nil {
		apperr.Log(ctx, s.logger, err, "decode_weekly_insight", "user_id", id.UserID, "fallback", true)
		return fallback
	}
	body, substituted := draft.Merge(fallback)
	if len(substituted) > 0 {
		s.logger.Debug("insight fields substituted with fallback",
			"user_id", id.UserID,
			"fields", substituted,
		)
	}
	return body
}

// entriesText concatenates each entry's narrative and user-authored turns.
func entriesText(chronological []types.DiaryEntry) string {
	var b strings.Builder
	for _, e := range chronological {
		b.WriteString("[")
		b.WriteString(e.CreatedAt.Format("Mon Jan 2"))
		b.WriteString("] ")
		if n := strings.TrimSpace(e.Narrative); n != "" {
			b.WriteString(n)
			b.WriteString(" ")
		}
		b.WriteString(e.UserText())
		b.WriteString("\n")
	}
	return truncate(b.String(), maxEntriesText)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
