package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/easeaico/memorify/internal/agent"
	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/auth"
	"github.com/easeaico/memorify/internal/companion"
	"github.com/easeaico/memorify/internal/config"
	"github.com/easeaico/memorify/internal/storage"
	"github.com/easeaico/memorify/internal/types"
)

type fixture struct {
	router   *gin.Engine
	verifier *auth.Verifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	store, err := storage.NewStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	logger := slog.New(slog.DiscardHandler)
	c, _ := companion.Build(companion.Deps{
		Config: config.Config{
			RetryMaxAttempts: 1,
			RetryBaseDelay:   time.Millisecond,
			RequestTimeout:   time.Second,
		},
		Store:  store,
		Logger: logger,
	})
	verifier, err := auth.NewVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewVerifier returned error: %v", err)
	}
	return &fixture{router: New(c, verifier, store.Diary, logger).Router(), verifier: verifier}
}

func (f *fixture) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := f.verifier.Issue(user, time.Hour)
		if err != nil {
			t.Fatalf("Issue returned error: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) apperr.Result[T] {
	t.Helper()
	var res apperr.Result[T]
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return res
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequiresToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/settings", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	res := decode[any](t, rec)
	if res.Error == nil || res.Error.Kind != apperr.KindAuth {
		t.Fatalf("expected auth error, got %+v", res.Error)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/settings", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[types.AgentSettings](t, rec)
	if !got.Data.AgenticModeEnabled || got.Data.PersonalityType != types.PersonalityFriend {
		t.Fatalf("unexpected defaults %+v", got.Data)
	}

	rec = f.do(t, http.MethodPatch, "/v1/settings", "u1", map[string]any{"personality_type": "poet"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[types.AgentSettings](t, rec); got.Data.PersonalityType != types.PersonalityPoet {
		t.Fatalf("update not applied: %+v", got.Data)
	}

	rec = f.do(t, http.MethodPatch, "/v1/settings", "u1", map[string]any{"check_in_frequency": "hourly"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	res := decode[types.AgentSettings](t, rec)
	if res.Error == nil || res.Error.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %+v", res.Error)
	}
	if res.Data.PersonalityType != types.PersonalityPoet {
		t.Fatalf("fallback should carry stored settings, got %+v", res.Data)
	}
}

func TestRunAgentLoopAndReadCheckin(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	var entries []types.DiaryEntry
	for i := 0; i < 7; i++ {
		entries = append(entries, types.DiaryEntry{
			ID:        string(rune('a' + i)),
			CreatedAt: now.AddDate(0, 0, -i).Add(-time.Minute),
			Chat:      []types.ChatTurn{{Role: types.ChatRoleUser, Text: "short"}},
			Emotion:   types.EmotionRecord{Primary: types.EmotionCalm, Intensity: 0.5},
		})
	}

	rec := f.do(t, http.MethodPost, "/v1/agent/run", "u1", map[string]any{"entries": entries})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	report := decode[agent.RunReport](t, rec)
	if len(report.Data.Raised()) != 1 {
		t.Fatalf("expected one milestone check-in, got %+v", report.Data.Steps)
	}

	rec = f.do(t, http.MethodGet, "/v1/checkins/pending?limit=5", "u1", nil)
	pending := decode[[]types.AgentCheckin](t, rec)
	if len(pending.Data) != 1 || pending.Data[0].TriggerType != types.TriggerMilestone {
		t.Fatalf("unexpected pending %+v", pending.Data)
	}

	rec = f.do(t, http.MethodPost, "/v1/checkins/"+pending.Data[0].ID+"/read", "u2", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another owner, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/v1/checkins/"+pending.Data[0].ID+"/read", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodGet, "/v1/checkins/pending", "u1", nil)
	if pending := decode[[]types.AgentCheckin](t, rec); len(pending.Data) != 0 {
		t.Fatalf("expected no pending check-ins, got %+v", pending.Data)
	}
}

func TestWeeklyInsightWithoutEntries(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/insights/weekly", "u1", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[*types.WeeklyInsight](t, rec)
	if res.Error == nil || res.Error.Kind != apperr.KindNoEntries || res.Data != nil {
		t.Fatalf("unexpected result %+v", res)
	}

	rec = f.do(t, http.MethodGet, "/v1/insights", "u1", nil)
	if list := decode[[]types.WeeklyInsight](t, rec); rec.Code != http.StatusOK || len(list.Data) != 0 {
		t.Fatalf("expected empty list, got %d %+v", rec.Code, list.Data)
	}
}

func TestStatusForKinds(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindAuth:       http.StatusUnauthorized,
		apperr.KindDuplicate:  http.StatusConflict,
		apperr.KindQuota:      http.StatusTooManyRequests,
		apperr.KindTimeout:    http.StatusGatewayTimeout,
		apperr.KindMalformed:  http.StatusBadGateway,
		apperr.KindInternal:   http.StatusInternalServerError,
		apperr.KindValidation: http.StatusBadRequest,
	}
	for kind, want := range cases {
		if got := statusFor(&apperr.Info{Kind: kind}); got != want {
			t.Fatalf("%s: expected %d, got %d", kind, want, got)
		}
	}
	if got := statusFor(nil); got != http.StatusOK {
		t.Fatalf("expected 200 for success, got %d", got)
	}
}
