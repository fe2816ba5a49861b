package checkin

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/generator"
	"github.com/easeaico/memorify/internal/prompt"
	"github.com/easeaico/memorify/internal/retry"
	"github.com/easeaico/memorify/internal/trigger"
	"github.com/easeaico/memorify/internal/types"
)

type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

type fakeRepo struct {
	checkins   []types.AgentCheckin
	countCalls int
	countErrs  []error
}

func (r *fakeRepo) CountSince(_ context.Context, userID string, trigger types.TriggerType, since time.Time) (int64, error) {
	r.countCalls++
	if len(r.countErrs) > 0 {
		err := r.countErrs[0]
		r.countErrs = r.countErrs[1:]
		return 0, err
	}
	var n int64
	for _, c := range r.checkins {
		if c.UserID == userID && c.TriggerType == trigger && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) Create(_ context.Context, c *types.AgentCheckin) error {
	r.checkins = append(r.checkins, *c)
	return nil
}

func (r *fakeRepo) ListPending(context.Context, string, int) ([]types.AgentCheckin, error) {
	return r.checkins, nil
}

func (r *fakeRepo) MarkRead(context.Context, string, string) error { return nil }

func (r *fakeRepo) MarkResponded(context.Context, string, string, time.Time) error { return nil }

type fakeGenerator struct {
	text     string
	err      error
	requests []generator.Request
}

func (g *fakeGenerator) Generate(_ context.Context, req generator.Request) (string, error) {
	g.requests = append(g.requests, req)
	return g.text, g.err
}

type fakeMemories struct {
	memories []types.AgentMemory
	touched  []string
}

func (m *fakeMemories) TopByImportance(context.Context, string, int) ([]types.AgentMemory, error) {
	return m.memories, nil
}

func (m *fakeMemories) Touch(_ context.Context, _ string, ids []string, _ time.Time) error {
	m.touched = append(m.touched, ids...)
	return nil
}

func testRetrier(logger *slog.Logger) *retry.Retrier {
	return retry.New(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Timeout: time.Second}, logger)
}

func TestWriterSuppressesDuplicateWithinWindow(t *testing.T) {
	handler := &captureHandler{}
	logger := slog.New(handler)
	repo := &fakeRepo{}
	writer := NewWriter(repo, testRetrier(logger), 0)
	id := types.Identity{UserID: "u1"}

	first := &types.AgentCheckin{TriggerType: types.TriggerInactivity, Message: "hello"}
	if err := writer.Write(context.Background(), id, first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	second := &types.AgentCheckin{TriggerType: types.TriggerInactivity, Message: "hello again"}
	err := writer.Write(context.Background(), id, second)
	if !apperr.Is(err, apperr.KindDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if len(repo.checkins) != 1 {
		t.Fatalf("expected one persisted check-in, got %d", len(repo.checkins))
	}
	if repo.countCalls != 2 {
		t.Fatalf("duplicate must not be retried, got %d count calls", repo.countCalls)
	}
	if len(handler.records) != 0 {
		t.Fatalf("duplicate must not be logged as a failure, got %d records", len(handler.records))
	}
}

func TestWriterAllowsOtherTriggersAndExpiredWindow(t *testing.T) {
	repo := &fakeRepo{}
	writer := NewWriter(repo, testRetrier(nil), time.Hour)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	writer.nowFunc = func() time.Time { return now }
	id := types.Identity{UserID: "u1"}

	repo.checkins = append(repo.checkins, types.AgentCheckin{
		UserID:      "u1",
		TriggerType: types.TriggerMilestone,
		CreatedAt:   now.Add(-2 * time.Hour),
	})
	if err := writer.Write(context.Background(), id, &types.AgentCheckin{TriggerType: types.TriggerMilestone, Message: "m"}); err != nil {
		t.Fatalf("expired window should allow a new check-in: %v", err)
	}
	if err := writer.Write(context.Background(), id, &types.AgentCheckin{TriggerType: types.TriggerInactivity, Message: "i"}); err != nil {
		t.Fatalf("different trigger should be allowed: %v", err)
	}
	if err := writer.Write(context.Background(), types.Identity{UserID: "u2"}, &types.AgentCheckin{TriggerType: types.TriggerMilestone, Message: "m"}); err != nil {
		t.Fatalf("different owner should be allowed: %v", err)
	}
	if len(repo.checkins) != 4 {
		t.Fatalf("expected 4 check-ins, got %d", len(repo.checkins))
	}
}

func TestWriterRetriesTransientCount(t *testing.T) {
	repo := &fakeRepo{countErrs: []error{apperr.Errorf(apperr.KindNetwork, "count", "reset")}}
	writer := NewWriter(repo, testRetrier(nil), 0)

	err := writer.Write(context.Background(), types.Identity{UserID: "u1"}, &types.AgentCheckin{TriggerType: types.TriggerInactivity, Message: "m"})
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if repo.countCalls != 2 {
		t.Fatalf("expected 2 count calls, got %d", repo.countCalls)
	}
}

func TestWriterRequiresIdentity(t *testing.T) {
	repo := &fakeRepo{}
	writer := NewWriter(repo, testRetrier(nil), 0)

	err := writer.Write(context.Background(), types.Identity{}, &types.AgentCheckin{TriggerType: types.TriggerInactivity, Message: "m"})
	if !apperr.Is(err, apperr.KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if repo.countCalls != 0 || len(repo.checkins) != 0 {
		t.Fatalf("unauthenticated write must not reach storage")
	}
}

func TestComposerUsesGeneratorAndTouchesMemories(t *testing.T) {
	gen := &fakeGenerator{text: "Thinking of you today."}
	memories := &fakeMemories{memories: []types.AgentMemory{{ID: "m1", Content: "loves morning runs"}}}
	composer := NewComposer(gen, prompt.NewBuilder(), memories, testRetrier(nil), 3, nil)

	got := composer.Compose(context.Background(), types.Identity{UserID: "u1"},
		types.AgentSettings{PersonalityType: types.PersonalityCoach},
		trigger.Candidate{Trigger: types.TriggerInactivity, Context: "3 days since last entry", DaysInactive: 3})
	if got != "Thinking of you today." {
		t.Fatalf("unexpected message %q", got)
	}
	if len(gen.requests) != 1 || !strings.Contains(gen.requests[0].Turns[0].Text, "loves morning runs") {
		t.Fatalf("memories not included in prompt: %+v", gen.requests)
	}
	if len(memories.touched) != 1 || memories.touched[0] != "m1" {
		t.Fatalf("expected consulted memory to be touched, got %v", memories.touched)
	}
}

func TestComposerFallsBackOnGeneratorFailure(t *testing.T) {
	handler := &captureHandler{}
	gen := &fakeGenerator{err: apperr.Errorf(apperr.KindQuota, "generate", "429")}
	memories := &fakeMemories{memories: []types.AgentMemory{{ID: "m1", Content: "x"}}}
	composer := NewComposer(gen, prompt.NewBuilder(), memories, testRetrier(nil), 0, slog.New(handler))

	got := composer.Compose(context.Background(), types.Identity{UserID: "u1"}, types.DefaultSettings("u1"),
		trigger.Candidate{Trigger: types.TriggerInactivity, DaysInactive: 4})
	if !strings.Contains(got, "4 days") {
		t.Fatalf("expected inactivity fallback, got %q", got)
	}
	if len(memories.touched) != 0 {
		t.Fatalf("memories must not be touched when generation fails")
	}
	if len(handler.records) != 1 {
		t.Fatalf("expected one logged failure, got %d", len(handler.records))
	}
}

func TestFallbackTemplates(t *testing.T) {
	cases := []struct {
		candidate trigger.Candidate
		want      string
	}{
		{trigger.Candidate{Trigger: types.TriggerInactivity, DaysInactive: 2}, "2 days"},
		{trigger.Candidate{Trigger: types.TriggerEmotionalPattern}, "felt heavy"},
		{trigger.Candidate{Trigger: types.TriggerMilestone, Context: "7-day journaling streak"}, "7-day journaling streak"},
		{trigger.Candidate{Trigger: types.TriggerScheduled}, "weekly reflection"},
		{trigger.Candidate{Trigger: types.TriggerType("other")}, "Just checking in"},
	}
	for _, tc := range cases {
		if got := Fallback(tc.candidate); !strings.Contains(got, tc.want) {
			t.Fatalf("Fallback(%s) = %q, want it to contain %q", tc.candidate.Trigger, got, tc.want)
		}
	}
}

func TestComposerWithoutGenerator(t *testing.T) {
	composer := NewComposer(nil, prompt.NewBuilder(), nil, testRetrier(nil), 0, slog.New(&captureHandler{}))
	got := composer.Compose(context.Background(), types.Identity{UserID: "u1"}, types.DefaultSettings("u1"),
		trigger.Candidate{Trigger: types.TriggerScheduled})
	if got != Fallback(trigger.Candidate{Trigger: types.TriggerScheduled}) {
		t.Fatalf("unexpected message %q", got)
	}
}
