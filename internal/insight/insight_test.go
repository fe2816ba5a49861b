package insight

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/generator"
	"github.com/easeaico/memorify/internal/prompt"
	"github.com/easeaico/memorify/internal/retry"
	"github.com/easeaico/memorify/internal/types"
)

type fakeGenerator struct {
	text     string
	err      error
	requests []generator.Request
}

func (g *fakeGenerator) Generate(_ context.Context, req generator.Request) (string, error) {
	g.requests = append(g.requests, req)
	return g.text, g.err
}

type fakeRepo struct {
	saved []types.WeeklyInsight
}

func (r *fakeRepo) Create(_ context.Context, in *types.WeeklyInsight) error {
	r.saved = append(r.saved, *in)
	return nil
}

func (r *fakeRepo) ListRecent(context.Context, string, int) ([]types.WeeklyInsight, error) {
	return r.saved, nil
}

type fakeRenderer struct {
	url string
	err error
}

func (r fakeRenderer) Render(context.Context, string, string) (string, error) {
	return r.url, r.err
}

// Wednesday.
var testNow = time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

func entry(at time.Time, emotion types.Emotion, intensity float64, text string) types.DiaryEntry {
	return types.DiaryEntry{
		ID:        at.Format(time.RFC3339),
		CreatedAt: at,
		Chat:      []types.ChatTurn{{Role: types.ChatRoleUser, Text: text}},
		Emotion:   types.EmotionRecord{Primary: emotion, Intensity: intensity},
	}
}

func newSynth(gen generator.Generator) *Synthesizer {
	s := NewSynthesizer(gen, prompt.NewBuilder(), slog.New(slog.DiscardHandler))
	s.nowFunc = func() time.Time { return testNow }
	return s
}

func TestWeekRange(t *testing.T) {
	start, end := WeekRange(testNow)
	wantStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 7, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Fatalf("WeekRange = %s..%s, want %s..%s", start, end, wantStart, wantEnd)
	}

	sunday := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if s, _ := WeekRange(sunday); !s.Equal(sunday) {
		t.Fatalf("Sunday midnight should start its own week, got %s", s)
	}
}

func TestSynthesizeEmptyWeekIsNoEntries(t *testing.T) {
	gen := &fakeGenerator{text: "{}"}
	old := entry(testNow.AddDate(0, 0, -10), types.EmotionJoy, 0.5, "last week")

	_, err := newSynth(gen).Synthesize(context.Background(), types.Identity{UserID: "u1"}, []types.DiaryEntry{old})
	if !apperr.Is(err, apperr.KindNoEntries) {
		t.Fatalf("expected no_entries, got %v", err)
	}
	if len(gen.requests) != 0 {
		t.Fatalf("generator must not be called for an empty week")
	}
}

func TestSynthesizeWeekTargetsPreviousWeek(t *testing.T) {
	gen := &fakeGenerator{err: apperr.E(apperr.KindServer, "generate_text", nil)}
	lastWeek := entry(testNow.AddDate(0, 0, -7), types.EmotionCalm, 0.4, "a quiet walk in the park")
	thisWeek := entry(testNow, types.EmotionJoy, 0.8, "shipped the release at work")

	got, err := newSynth(gen).SynthesizeWeek(context.Background(), types.Identity{UserID: "u1"},
		[]types.DiaryEntry{thisWeek, lastWeek}, testNow.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("SynthesizeWeek returned error: %v", err)
	}
	if !got.WeekStart.Equal(time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week start %v", got.WeekStart)
	}
	if len(got.EmotionDistribution) != 1 || got.EmotionDistribution[types.EmotionCalm] != 1 {
		t.Fatalf("only last week's entries should count, got %v", got.EmotionDistribution)
	}
	if !got.CreatedAt.Equal(testNow) {
		t.Fatalf("created at should be the synthesis time, got %v", got.CreatedAt)
	}
}

func TestMoodTrendOf(t *testing.T) {
	at := func(h int) time.Time { return testNow.Add(time.Duration(h) * time.Hour) }
	cases := []struct {
		name        string
		intensities []float64
		want        types.MoodTrend
	}{
		{"improving", []float64{0.2, 0.3, 0.6, 0.7}, types.MoodImproving},
		{"declining", []float64{0.8, 0.7, 0.4, 0.3}, types.MoodDeclining},
		{"stable", []float64{0.5, 0.5, 0.55, 0.58}, types.MoodStable},
		{"single", []float64{0.9}, types.MoodStable},
		{"odd count", []float64{0.1, 0.5, 0.6}, types.MoodImproving},
	}
	for _, tc := range cases {
		var entries []types.DiaryEntry
		for i, v := range tc.intensities {
			entries = append(entries, entry(at(i), types.EmotionCalm, v, ""))
		}
		if got := MoodTrendOf(entries); got != tc.want {
			t.Fatalf("%s: MoodTrendOf = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestDominantEmotions(t *testing.T) {
	hist := map[types.Emotion]int{
		types.EmotionJoy:     3,
		types.EmotionCalm:    1,
		types.EmotionAnxiety: 2,
		types.EmotionHope:    1,
	}
	got := DominantEmotions(hist)
	want := []types.Emotion{types.EmotionJoy, types.EmotionAnxiety, types.EmotionCalm}
	if len(got) != len(want) {
		t.Fatalf("DominantEmotions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DominantEmotions = %v, want %v", got, want)
		}
	}
}

func TestThemes(t *testing.T) {
	got := Themes("Long meeting at work, then a walk in the park with my sister.")
	if len(got) != 3 || got[0] != "Work and career" || got[1] != "Relationships" || got[2] != "Nature and outdoors" {
		t.Fatalf("unexpected themes %v", got)
	}
	if got := Themes("zzz"); len(got) != 1 || got[0] != "Daily reflections" {
		t.Fatalf("expected default theme, got %v", got)
	}
}

func TestSynthesizeFallsBackWhenGeneratorFails(t *testing.T) {
	gen := &fakeGenerator{err: apperr.Errorf(apperr.KindServer, "generate", "503")}
	entries := []types.DiaryEntry{
		entry(testNow.Add(-time.Hour), types.EmotionJoy, 0.9, "great day at work"),
		entry(testNow.Add(-26*time.Hour), types.EmotionJoy, 0.8, "good run"),
		entry(testNow.Add(-50*time.Hour), types.EmotionAnxiety, 0.3, "worried"),
	}

	got, err := newSynth(gen).Synthesize(context.Background(), types.Identity{UserID: "u1"}, entries)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if got.UserID != "u1" || got.EmotionDistribution[types.EmotionJoy] != 2 || got.EmotionDistribution[types.EmotionAnxiety] != 1 {
		t.Fatalf("unexpected insight %+v", got)
	}
	if got.DominantEmotions[0] != types.EmotionJoy {
		t.Fatalf("unexpected dominant emotions %v", got.DominantEmotions)
	}
	if got.MoodTrend != types.MoodImproving {
		t.Fatalf("expected improving trend, got %s", got.MoodTrend)
	}
	if len(got.Themes) == 0 || len(got.GrowthObservations) == 0 || len(got.RecommendedActions) == 0 || got.VisualPrompt == "" {
		t.Fatalf("fallback insight is incomplete: %+v", got)
	}
	if !strings.Contains(got.GrowthObservations[0], "3 times") {
		t.Fatalf("growth observation should mention the entry count: %q", got.GrowthObservations[0])
	}
}

func TestSynthesizeMergesPartialResponse(t *testing.T) {
	gen := &fakeGenerator{text: "Here you go:\n```json\n" + `{
  "dominant_emotions": "joy",
  "emotion_distribution": {"joy": 99},
  "themes": ["Friendship", ""],
  "growth_observations": ["You reached out more {often}."],
  "recommended_actions": [],
  "mood_trend": "ecstatic",
  "visual_prompt": "A sunrise over calm water"
}` + "\n```"}
	entries := []types.DiaryEntry{
		entry(testNow.Add(-time.Hour), types.EmotionCalm, 0.5, "quiet evening"),
	}

	got, err := newSynth(gen).Synthesize(context.Background(), types.Identity{UserID: "u1"}, entries)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if len(got.DominantEmotions) != 1 || got.DominantEmotions[0] != types.EmotionCalm {
		t.Fatalf("non-list dominant emotions should fall back, got %v", got.DominantEmotions)
	}
	if got.EmotionDistribution[types.EmotionJoy] != 0 || got.EmotionDistribution[types.EmotionCalm] != 1 {
		t.Fatalf("distribution must come from the local histogram, got %v", got.EmotionDistribution)
	}
	if len(got.Themes) != 1 || got.Themes[0] != "Friendship" {
		t.Fatalf("unexpected themes %v", got.Themes)
	}
	if got.GrowthObservations[0] != "You reached out more {often}." {
		t.Fatalf("unexpected growth observations %v", got.GrowthObservations)
	}
	if len(got.RecommendedActions) == 0 {
		t.Fatalf("empty actions should fall back")
	}
	if got.MoodTrend != types.MoodStable {
		t.Fatalf("invalid mood trend should fall back, got %s", got.MoodTrend)
	}
	if got.VisualPrompt != "A sunrise over calm water" {
		t.Fatalf("unexpected visual prompt %q", got.VisualPrompt)
	}
}

func TestDecodeWithoutObject(t *testing.T) {
	if _, err := Decode("I could not do that."); !apperr.Is(err, apperr.KindMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
	if _, err := Decode("{broken {\"mood_trend\": \"stable\"}"); err != nil {
		t.Fatalf("expected to find the nested valid object, got %v", err)
	}
}

func TestServiceGenerateStoresAndRenders(t *testing.T) {
	repo := &fakeRepo{}
	synth := newSynth(&fakeGenerator{err: apperr.Errorf(apperr.KindQuota, "generate", "429")})
	retrier := retry.New(retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}, nil)
	svc := NewService(synth, repo, retrier, fakeRenderer{url: "https://img/1.png"}, slog.New(slog.DiscardHandler))
	entries := []types.DiaryEntry{entry(testNow.Add(-time.Hour), types.EmotionHope, 0.5, "new plans")}

	got, err := svc.Generate(context.Background(), types.Identity{UserID: "u1"}, entries, true)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got.VisualURL != "https://img/1.png" || len(repo.saved) != 1 {
		t.Fatalf("expected stored insight with visual, got %+v", got)
	}

	got, err = svc.Generate(context.Background(), types.Identity{UserID: "u1"}, entries, false)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got.VisualURL != "" || len(repo.saved) != 2 {
		t.Fatalf("visual must be skipped when disabled")
	}

	recent, err := svc.Recent(context.Background(), types.Identity{UserID: "u1"}, 0)
	if err != nil || len(recent) != 2 {
		t.Fatalf("Recent = %d, %v", len(recent), err)
	}
}
