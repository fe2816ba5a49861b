package storage

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := NewStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	return store
}

func TestSettingsLazyCreateAndSave(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	got, err := store.Settings.Get(ctx, "u1")
	if err != nil || got != nil {
		t.Fatalf("expected no settings, got %+v, %v", got, err)
	}

	created, err := store.Settings.Create(ctx, types.DefaultSettings("u1"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !created.AgenticModeEnabled || created.PersonalityType != types.PersonalityFriend || created.VisualGeneration {
		t.Fatalf("unexpected defaults: %+v", created)
	}

	// A concurrent lazy create must not clobber the stored row.
	again := types.DefaultSettings("u1")
	again.PersonalityType = types.PersonalityPoet
	if _, err := store.Settings.Create(ctx, again); err != nil {
		t.Fatalf("second Create returned error: %v", err)
	}

	created.PersonalityType = types.PersonalityCoach
	created.CheckInFrequency = types.FrequencyWeekly
	created.AgenticModeEnabled = false
	if err := store.Settings.Save(ctx, *created); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	reloaded, err := store.Settings.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if reloaded.PersonalityType != types.PersonalityCoach || reloaded.CheckInFrequency != types.FrequencyWeekly || reloaded.AgenticModeEnabled {
		t.Fatalf("settings not persisted: %+v", reloaded)
	}

	at := time.Now()
	if err := store.Settings.SetLastCheckIn(ctx, "u1", at); err != nil {
		t.Fatalf("SetLastCheckIn returned error: %v", err)
	}
	reloaded, _ = store.Settings.Get(ctx, "u1")
	if reloaded.LastCheckIn == nil || !reloaded.LastCheckIn.Equal(at.UTC()) {
		t.Fatalf("last check-in not stored: %v", reloaded.LastCheckIn)
	}
}

func TestSettingsListEnabled(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	on := types.DefaultSettings("a")
	off := types.DefaultSettings("b")
	off.AgenticModeEnabled = false
	for _, s := range []types.AgentSettings{on, off} {
		if _, err := store.Settings.Create(ctx, s); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}
	ids, err := store.Settings.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("unexpected enabled owners %v", ids)
	}
}

func TestMemoryCreateRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bad := &types.AgentMemory{UserID: "u1", Kind: "habit", Content: "x", Importance: 0.5}
	if err := store.Memories.Create(ctx, bad); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	over := &types.AgentMemory{UserID: "u1", Kind: types.MemoryPattern, Content: "x", Importance: 1.5}
	if err := store.Memories.Create(ctx, over); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	list, err := store.Memories.TopByImportance(ctx, "u1", 10)
	if err != nil || len(list) != 0 {
		t.Fatalf("invalid memories were written: %v, %v", list, err)
	}
}

func TestMemoryRankingAndTouch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	low := &types.AgentMemory{UserID: "u1", Kind: types.MemoryPreference, Content: "Likes tea", Importance: 0.3, EmotionalContext: []string{"calm"}}
	high := &types.AgentMemory{UserID: "u1", Kind: types.MemoryConcern, Content: "Worried about exams", Importance: 0.9}
	other := &types.AgentMemory{UserID: "u2", Kind: types.MemoryPattern, Content: "Runs daily", Importance: 1}
	for _, m := range []*types.AgentMemory{low, high, other} {
		if err := store.Memories.Create(ctx, m); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	top, err := store.Memories.TopByImportance(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("TopByImportance returned error: %v", err)
	}
	if len(top) != 2 || top[0].ID != high.ID || top[1].ID != low.ID {
		t.Fatalf("unexpected ranking %+v", top)
	}
	if len(top[1].EmotionalContext) != 1 || top[1].EmotionalContext[0] != "calm" {
		t.Fatalf("emotional context not round-tripped: %v", top[1].EmotionalContext)
	}

	at := time.Now().Add(time.Minute)
	if err := store.Memories.Touch(ctx, "u1", []string{low.ID, other.ID}, at); err != nil {
		t.Fatalf("Touch returned error: %v", err)
	}
	found, err := store.Memories.FindByContent(ctx, "u1", types.MemoryPreference, "  likes TEA ")
	if err != nil || found == nil {
		t.Fatalf("FindByContent returned %v, %v", found, err)
	}
	if found.AccessCount != 1 || !found.LastAccessedAt.Equal(at.UTC()) {
		t.Fatalf("touch not applied: %+v", found)
	}

	// Touch is owner-scoped.
	foreign, _ := store.Memories.TopByImportance(ctx, "u2", 5)
	if foreign[0].AccessCount != 0 {
		t.Fatalf("touched another owner's memory")
	}

	missing, err := store.Memories.FindByContent(ctx, "u1", types.MemoryPattern, "Likes tea")
	if err != nil || missing != nil {
		t.Fatalf("expected no match across kinds, got %+v, %v", missing, err)
	}
	if sim, err := store.Memories.FindSimilar(ctx, "u1", []float32{0.1}, 0.9); err != nil || sim != nil {
		t.Fatalf("sqlite similarity search should be a no-op, got %+v, %v", sim, err)
	}
}

func TestCheckinWindowAndReadFlags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	old := &types.AgentCheckin{UserID: "u1", TriggerType: types.TriggerInactivity, Message: "hi", CreatedAt: now.Add(-30 * time.Hour)}
	recent := &types.AgentCheckin{UserID: "u1", TriggerType: types.TriggerInactivity, Message: "hello", CreatedAt: now.Add(-2 * time.Hour)}
	for _, c := range []*types.AgentCheckin{old, recent} {
		if err := store.Checkins.Create(ctx, c); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	count, err := store.Checkins.CountSince(ctx, "u1", types.TriggerInactivity, now.Add(-24*time.Hour))
	if err != nil || count != 1 {
		t.Fatalf("expected 1 check-in in window, got %d, %v", count, err)
	}
	count, _ = store.Checkins.CountSince(ctx, "u1", types.TriggerMilestone, now.Add(-24*time.Hour))
	if count != 0 {
		t.Fatalf("window must be per trigger type, got %d", count)
	}

	pending, err := store.Checkins.ListPending(ctx, "u1", 10)
	if err != nil || len(pending) != 2 || pending[0].ID != recent.ID {
		t.Fatalf("unexpected pending %+v, %v", pending, err)
	}

	if err := store.Checkins.MarkRead(ctx, "u1", recent.ID); err != nil {
		t.Fatalf("MarkRead returned error: %v", err)
	}
	if err := store.Checkins.MarkRead(ctx, "u2", old.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
	if err := store.Checkins.MarkResponded(ctx, "u1", old.ID, now); err != nil {
		t.Fatalf("MarkResponded returned error: %v", err)
	}
	pending, _ = store.Checkins.ListPending(ctx, "u1", 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending check-ins, got %d", len(pending))
	}
}

func TestCheckinCreateValidatesTrigger(t *testing.T) {
	store := newTestStore(t)
	bad := &types.AgentCheckin{UserID: "u1", TriggerType: "whim", Message: "hi"}
	if err := store.Checkins.Create(context.Background(), bad); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInsightRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := &types.WeeklyInsight{
		UserID:              "u1",
		WeekStart:           time.Date(2026, 5, 17, 0, 0, 0, 0, time.UTC),
		WeekEnd:             time.Date(2026, 5, 23, 23, 59, 59, 999000000, time.UTC),
		DominantEmotions:    []types.Emotion{types.EmotionJoy, types.EmotionCalm},
		EmotionDistribution: map[types.Emotion]int{types.EmotionJoy: 3, types.EmotionCalm: 1},
		Themes:              []string{"Work"},
		GrowthObservations:  []string{"You wrote 4 times"},
		RecommendedActions:  []string{"Keep going"},
		MoodTrend:           types.MoodImproving,
		VisualPrompt:        "sunrise",
	}
	if err := store.Insights.Create(ctx, in); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	second := *in
	second.ID = ""
	second.CreatedAt = in.CreatedAt.Add(time.Second)
	if err := store.Insights.Create(ctx, &second); err != nil {
		t.Fatalf("overlapping insight rejected: %v", err)
	}

	list, err := store.Insights.ListRecent(ctx, "u1", 5)
	if err != nil || len(list) != 2 {
		t.Fatalf("unexpected list %+v, %v", list, err)
	}
	got := list[1]
	if got.ID != in.ID || got.MoodTrend != types.MoodImproving || got.EmotionDistribution[types.EmotionJoy] != 3 {
		t.Fatalf("insight not round-tripped: %+v", got)
	}
	if len(got.DominantEmotions) != 2 || got.DominantEmotions[0] != types.EmotionJoy {
		t.Fatalf("dominant emotions not round-tripped: %v", got.DominantEmotions)
	}
}

func TestDiaryListRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rows := []diaryEntryModel{
		{ID: "e1", UserID: "u1", CreatedAt: now.Add(-48 * time.Hour), Narrative: "older",
			Emotion: datatypes.NewJSONType(types.EmotionRecord{Primary: types.EmotionCalm, Intensity: 0.4})},
		{ID: "e2", UserID: "u1", CreatedAt: now, Narrative: "newer",
			ChatMessages: datatypes.NewJSONSlice([]types.ChatTurn{{Role: types.ChatRoleUser, Text: "hello"}}),
			Emotion:      datatypes.NewJSONType(types.EmotionRecord{Primary: types.EmotionJoy, Intensity: 0.8})},
		{ID: "e3", UserID: "u2", CreatedAt: now, Narrative: "foreign"},
	}
	if err := store.DB().Create(&rows).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	entries, err := store.Diary.ListRecent(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "e2" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].Emotion.Primary != types.EmotionJoy || entries[0].UserText() != "hello" {
		t.Fatalf("entry not decoded: %+v", entries[0])
	}
}
