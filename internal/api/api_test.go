package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sadopc/somnus/internal/sleep"
	"github.com/sadopc/somnus/internal/store"
)

type testEnv struct {
	router *mux.Router
	engine *sleep.Engine
	now    *time.Time
}

func setup(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return setupWithStore(t, s, opts...)
}

func setupWithStore(t *testing.T, s sleep.Store, opts ...Option) *testEnv {
	t.Helper()
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	env := &testEnv{now: &now}
	n := 0
	env.engine = sleep.New(s,
		sleep.WithClock(sleep.ClockFunc(func() time.Time { return *env.now })),
		sleep.WithIDs(func() string { n++; return fmt.Sprintf("s%d", n) }),
	)
	env.router = NewRouter(env.engine, slog.New(slog.DiscardHandler), opts...)
	return env
}

func (env *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestStatusIdle(t *testing.T) {
	env := setup(t)
	rr := env.do(t, "GET", "/api/status")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	got := decode[StatusResponse](t, rr)
	if got.State != "idle" || got.Sleeping || got.StartTime != nil || got.Stats.Count != 0 {
		t.Fatalf("unexpected status %+v", got)
	}
}

func TestStartAndEnd(t *testing.T) {
	env := setup(t)

	rr := env.do(t, "POST", "/api/sessions/start")
	if rr.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", rr.Code, rr.Body)
	}
	st := decode[StatusResponse](t, rr)
	if !st.Sleeping || st.StartTime == nil || !st.StartTime.Equal(*env.now) {
		t.Fatalf("unexpected status after start %+v", st)
	}

	*env.now = env.now.Add(7*time.Hour + 20*time.Minute)
	st = decode[StatusResponse](t, env.do(t, "GET", "/api/status"))
	if st.ElapsedSeconds != int64((7*time.Hour+20*time.Minute)/time.Second) {
		t.Fatalf("elapsed = %d", st.ElapsedSeconds)
	}

	rr = env.do(t, "POST", "/api/sessions/end")
	if rr.Code != http.StatusOK {
		t.Fatalf("end status = %d: %s", rr.Code, rr.Body)
	}
	end := decode[EndResponse](t, rr)
	if end.Session.ID != "s1" || *end.Session.Duration != 7.3 || *end.Session.Quality != 88 {
		t.Fatalf("unexpected session %+v", end.Session)
	}
	if end.ReachedMilestone || end.Message != "" {
		t.Fatal("milestone should not fire on the first session")
	}

	hist := decode[HistoryResponse](t, env.do(t, "GET", "/api/history"))
	if hist.Count != 1 || hist.Sessions[0].ID != "s1" {
		t.Fatalf("unexpected history %+v", hist)
	}
}

func TestStartTwiceConflicts(t *testing.T) {
	env := setup(t)
	env.do(t, "POST", "/api/sessions/start")
	rr := env.do(t, "POST", "/api/sessions/start")
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
	if got := decode[errorResponse](t, rr); got.Error == "" {
		t.Fatal("expected error message")
	}
}

func TestEndWithoutStartConflicts(t *testing.T) {
	env := setup(t)
	rr := env.do(t, "POST", "/api/sessions/end")
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
	if len(env.engine.History()) != 0 {
		t.Fatal("history should be unchanged")
	}
}

func TestWrongMethod(t *testing.T) {
	env := setup(t)
	if rr := env.do(t, "GET", "/api/sessions/start"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
	if rr := env.do(t, "GET", "/api/nope"); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func seedHistory(t *testing.T, n int) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	base := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	history := make([]sleep.Session, n)
	for i := range history {
		start := base.AddDate(0, 0, -i)
		end := start.Add(5 * time.Hour)
		hours, quality := 5.0, 60
		history[i] = sleep.Session{ID: fmt.Sprintf("old%d", i), StartTime: start, EndTime: &end, Duration: &hours, Quality: &quality}
	}
	payload, err := json.Marshal(history)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(sleep.KeyHistory, string(payload)); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestHistoryLimit(t *testing.T) {
	env := setupWithStore(t, seedHistory(t, 5))

	hist := decode[HistoryResponse](t, env.do(t, "GET", "/api/history?limit=2"))
	if hist.Count != 2 || hist.Sessions[0].ID != "old0" || hist.Sessions[1].ID != "old1" {
		t.Fatalf("unexpected history %+v", hist)
	}
	if rr := env.do(t, "GET", "/api/history?limit=-1"); rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHistoryEmptyIsArray(t *testing.T) {
	env := setup(t)
	rr := env.do(t, "GET", "/api/history")
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["sessions"]) != "[]" {
		t.Fatalf("sessions = %s, want []", raw["sessions"])
	}
}

func TestAnalysisGate(t *testing.T) {
	env := setupWithStore(t, seedHistory(t, 28))

	got := decode[AnalysisResponse](t, env.do(t, "GET", "/api/analysis"))
	if got.Available || got.Remaining != 2 || got.Analysis != nil {
		t.Fatalf("unexpected analysis %+v", got)
	}
}

func TestMilestoneOverHTTP(t *testing.T) {
	var seen []sleep.Completion
	s := seedHistory(t, 29)
	env := setupWithStore(t, s, OnCompletion(func(c sleep.Completion) { seen = append(seen, c) }))

	env.do(t, "POST", "/api/sessions/start")
	*env.now = env.now.Add(8 * time.Hour)
	end := decode[EndResponse](t, env.do(t, "POST", "/api/sessions/end"))
	if !end.ReachedMilestone || end.Message == "" {
		t.Fatalf("milestone should fire at 30 sessions: %+v", end)
	}
	if len(seen) != 1 || !seen[0].ReachedMilestone {
		t.Fatalf("callback saw %+v", seen)
	}

	got := decode[AnalysisResponse](t, env.do(t, "GET", "/api/analysis"))
	if !got.Available || got.Remaining != 0 || got.Analysis == nil {
		t.Fatalf("analysis should be available: %+v", got)
	}
	if got.Analysis.Category != "fast_sleep" {
		t.Fatalf("category = %s", got.Analysis.Category)
	}
}

func TestRequestID(t *testing.T) {
	env := setup(t)
	rr := env.do(t, "GET", "/api/status")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Header().Get("X-Request-ID") != "abc" {
		t.Fatal("incoming request id should be echoed")
	}
}

type brokenStore struct{}

func (brokenStore) Get(string) (string, bool, error) { return "", false, fmt.Errorf("disk gone") }
func (brokenStore) Set(string, string) error         { return fmt.Errorf("disk gone") }
func (brokenStore) Delete(string) error              { return fmt.Errorf("disk gone") }

func TestStatusReportsDegraded(t *testing.T) {
	env := setupWithStore(t, brokenStore{})
	got := decode[StatusResponse](t, env.do(t, "GET", "/api/status"))
	if got.Degraded == "" {
		t.Fatal("degraded engine should be reported")
	}
	// Still usable in memory.
	if rr := env.do(t, "POST", "/api/sessions/start"); rr.Code != http.StatusOK {
		t.Fatalf("start status = %d", rr.Code)
	}
}

type panickyEngine struct{ *sleep.Engine }

func (panickyEngine) State() sleep.State { panic("state unavailable") }

func TestPanicBecomes500(t *testing.T) {
	env := setup(t)
	router := NewRouter(panickyEngine{env.engine}, slog.New(slog.DiscardHandler))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}
