package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlog/internal/gate"
	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/repositories"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/desertthunder/moodlog/internal/tasks"
	mtesting "github.com/desertthunder/moodlog/internal/testing"
	"github.com/facebookgo/clock"
)

var start = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	clock *clock.Mock
	repo  *repositories.MoodEntryRepository
}

// setupServer backs every component with one in-memory database and a mock clock at start.
func setupServer(t *testing.T, cfg shared.ServerConfig) *testEnv {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	mock := clock.NewMock()
	mock.Add(start.Sub(mock.Now()))
	logger := log.New(io.Discard)

	repo := repositories.NewMoodEntryRepository(db).WithClock(mock)
	g := gate.New(repo, gate.Options{Clock: mock, Location: time.UTC, Logger: logger})

	srv := NewServer(Opts{
		Config:   cfg,
		Gate:     g,
		Registry: NewRegistry(mock, time.Minute, logger),
		History:  tasks.NewHistoryEngine(repo, mock),
		Entries:  repo,
		Location: time.UTC,
		Logger:   logger,
	})
	t.Cleanup(srv.Registry().DisposeAll)

	return &testEnv{srv: srv, clock: mock, repo: repo}
}

// setupStubServer backs the gate with an in-memory store for failure injection.
func setupStubServer(t *testing.T) (*Server, *mtesting.MockStore) {
	t.Helper()
	mock := clock.NewMock()
	mock.Add(start.Sub(mock.Now()))
	store := mtesting.NewMockStore(mock)
	logger := log.New(io.Discard)

	srv := NewServer(Opts{
		Gate:     gate.New(store, gate.Options{Clock: mock, Location: time.UTC, Logger: logger}),
		Location: time.UTC,
		Logger:   logger,
	})
	t.Cleanup(srv.Registry().DisposeAll)
	return srv, store
}

func do(t *testing.T, h http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return v
}

type activationResp struct {
	ID         string         `json:"id"`
	Decision   string         `json:"decision"`
	State      string         `json:"state"`
	AutoSaveAt *time.Time     `json:"auto_save_at"`
	AutoSaved  bool           `json:"auto_saved"`
	Entry      map[string]any `json:"entry"`
	Error      string         `json:"error"`
}

func createActivation(t *testing.T, h http.Handler, user string) activationResp {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/checkins", user, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 creating activation, got %d: %s", rec.Code, rec.Body)
	}
	return decode[activationResp](t, rec)
}

// waitForState polls the status endpoint until the activation reaches want.
func waitForState(t *testing.T, h http.Handler, user, id, want string) activationResp {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp := decode[activationResp](t, do(t, h, http.MethodGet, "/checkins/"+id, user, nil))
		if resp.State == want {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("activation stuck in %s, want %s", resp.State, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublicRoutes(t *testing.T) {
	env := setupServer(t, shared.ServerConfig{})
	h := env.srv.Handler()

	t.Run("health", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/health", "", nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
			t.Errorf("unexpected health response %d %s", rec.Code, rec.Body)
		}
	})

	t.Run("mood options", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/moods/options", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decode[struct {
			Moods []struct {
				Label string `json:"label"`
			} `json:"moods"`
			Default string `json:"default"`
		}](t, rec)

		if len(body.Moods) != 5 || body.Moods[0].Label != "Happy" {
			t.Errorf("unexpected options %+v", body.Moods)
		}
		if body.Default != "Neutral" {
			t.Errorf("expected default Neutral, got %q", body.Default)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/health", "", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("protected routes need a user", func(t *testing.T) {
		for _, path := range []string{"/checkins", "/moods", "/moods/summary"} {
			method := http.MethodGet
			if path == "/checkins" {
				method = http.MethodPost
			}
			if rec := do(t, h, method, path, "", nil); rec.Code != http.StatusUnauthorized {
				t.Errorf("%s %s: expected 401, got %d", method, path, rec.Code)
			}
		}
	})
}

func TestCheckinFlow(t *testing.T) {
	t.Run("submit then revisit", func(t *testing.T) {
		env := setupServer(t, shared.ServerConfig{})
		h := env.srv.Handler()

		act := createActivation(t, h, "u-1")
		if act.Decision != "needs_check_in" || act.State != "armed" {
			t.Fatalf("unexpected activation %+v", act)
		}
		if act.AutoSaveAt == nil || !act.AutoSaveAt.Equal(start.Add(30*time.Second)) {
			t.Errorf("expected auto_save_at 30s out, got %v", act.AutoSaveAt)
		}

		rec := do(t, h, http.MethodPost, "/checkins/"+act.ID+"/submit", "u-1", map[string]string{"mood": "sad", "note": "rough day"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
		}
		entry := decode[map[string]any](t, rec)
		if entry["mood"] != "Sad" || entry["note"] != "rough day" || entry["auto_saved"] != false {
			t.Errorf("unexpected entry %v", entry)
		}

		status := waitForState(t, h, "u-1", act.ID, "settled")
		if status.Entry == nil || status.AutoSaveAt != nil {
			t.Errorf("unexpected settled view %+v", status)
		}

		again := createActivation(t, h, "u-1")
		if again.Decision != "already_checked_in" || again.State != "checked_in" {
			t.Errorf("expected already checked in, got %+v", again)
		}

		rec = do(t, h, http.MethodPost, "/checkins/"+again.ID+"/submit", "u-1", map[string]string{"mood": "Happy"})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409 for second check-in, got %d", rec.Code)
		}

		rec = do(t, h, http.MethodPost, "/checkins/"+act.ID+"/submit", "u-1", map[string]string{"mood": "Happy"})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409 for committed activation, got %d", rec.Code)
		}
	})

	t.Run("auto-save after thirty seconds", func(t *testing.T) {
		env := setupServer(t, shared.ServerConfig{})
		h := env.srv.Handler()

		act := createActivation(t, h, "u-1")
		env.clock.Add(30 * time.Second)

		status := waitForState(t, h, "u-1", act.ID, "settled")
		if !status.AutoSaved || status.Entry["mood"] != "Neutral" || status.Entry["note"] != "Auto-saved" {
			t.Errorf("unexpected auto-saved view %+v", status)
		}
	})

	t.Run("overlapping visits save once", func(t *testing.T) {
		env := setupServer(t, shared.ServerConfig{})
		h := env.srv.Handler()

		first := createActivation(t, h, "u-1")
		env.clock.Add(10 * time.Second)
		second := createActivation(t, h, "u-1")
		if first.Decision != "needs_check_in" || second.Decision != "needs_check_in" {
			t.Fatalf("expected both visits to need a check-in, got %s and %s", first.Decision, second.Decision)
		}
		waitForState(t, h, "u-1", first.ID, "disposed")

		env.clock.Add(30 * time.Second)
		status := waitForState(t, h, "u-1", second.ID, "settled")
		if !status.AutoSaved {
			t.Errorf("expected the newer visit to auto-save, got %+v", status)
		}

		rec := do(t, h, http.MethodPost, "/checkins/"+first.ID+"/submit", "u-1", map[string]string{"mood": "Happy"})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409 from the superseded visit, got %d", rec.Code)
		}

		entries, err := env.repo.List(context.Background(), repositories.ListCriteria{UserID: "u-1"})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected one entry for the day, got %d", len(entries))
		}
	})

	t.Run("teardown cancels auto-save", func(t *testing.T) {
		env := setupServer(t, shared.ServerConfig{})
		h := env.srv.Handler()

		act := createActivation(t, h, "u-1")
		env.clock.Add(10 * time.Second)

		if rec := do(t, h, http.MethodDelete, "/checkins/"+act.ID, "u-1", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		env.clock.Add(time.Minute)
		time.Sleep(20 * time.Millisecond)

		entries, err := env.repo.List(context.Background(), repositories.ListCriteria{UserID: "u-1"})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected no entries after teardown, got %d", len(entries))
		}
		if rec := do(t, h, http.MethodGet, "/checkins/"+act.ID, "u-1", nil); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 after teardown, got %d", rec.Code)
		}
	})

	t.Run("request validation", func(t *testing.T) {
		env := setupServer(t, shared.ServerConfig{})
		h := env.srv.Handler()
		act := createActivation(t, h, "u-1")

		tests := []struct {
			name string
			user string
			path string
			body any
			want int
		}{
			{"unknown mood", "u-1", "/checkins/" + act.ID + "/submit", map[string]string{"mood": "Elated"}, http.StatusBadRequest},
			{"malformed body", "u-1", "/checkins/" + act.ID + "/submit", "{", http.StatusBadRequest},
			{"unknown activation", "u-1", "/checkins/nope/submit", map[string]string{"mood": "Happy"}, http.StatusNotFound},
			{"another user's activation", "u-2", "/checkins/" + act.ID + "/submit", map[string]string{"mood": "Happy"}, http.StatusNotFound},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := do(t, h, http.MethodPost, tt.path, tt.user, tt.body)
				if rec.Code != tt.want {
					t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body)
				}
			})
		}

		if status := waitForState(t, h, "u-1", act.ID, "armed"); status.Entry != nil {
			t.Error("rejected submissions must not write")
		}
	})

	t.Run("viewer time zone", func(t *testing.T) {
		env := setupServer(t, shared.ServerConfig{})
		h := env.srv.Handler()

		req := httptest.NewRequest(http.MethodPost, "/checkins?tz=Not/AZone", nil)
		req.Header.Set(UserHeader, "u-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for unknown zone, got %d", rec.Code)
		}

		req = httptest.NewRequest(http.MethodPost, "/checkins", nil)
		req.Header.Set(UserHeader, "u-1")
		req.Header.Set(TimezoneHeader, "UTC")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"timezone":"UTC"`) {
			t.Errorf("expected UTC activation, got %d %s", rec.Code, rec.Body)
		}
	})
}

func TestCheckinStoreFailures(t *testing.T) {
	t.Run("read failure discards the activation", func(t *testing.T) {
		srv, store := setupStubServer(t)
		store.SetReadErr(errors.New("connection reset"))

		rec := do(t, srv.Handler(), http.MethodPost, "/checkins", "u-1", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		if srv.Registry().Len() != 0 {
			t.Errorf("failed activation should not be tracked")
		}
	})

	t.Run("write failure keeps the activation armed", func(t *testing.T) {
		srv, store := setupStubServer(t)
		h := srv.Handler()
		act := createActivation(t, h, "u-1")

		store.SetWriteErr(errors.New("disk full"))
		rec := do(t, h, http.MethodPost, "/checkins/"+act.ID+"/submit", "u-1", map[string]string{"mood": "Okay"})
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		waitForState(t, h, "u-1", act.ID, "armed")

		store.SetWriteErr(nil)
		rec = do(t, h, http.MethodPost, "/checkins/"+act.ID+"/submit", "u-1", map[string]string{"mood": "Okay"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected retry to succeed, got %d", rec.Code)
		}
	})
}

func TestMoodsRoutes(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, env *testEnv) []*models.MoodEntry {
		t.Helper()
		var saved []*models.MoodEntry
		for _, mood := range []models.Mood{models.MoodHappy, models.MoodSad, models.MoodOkay} {
			e, err := env.repo.Insert(ctx, models.NewMoodEntry("u-1", mood, ""))
			if err != nil {
				t.Fatalf("failed to seed: %v", err)
			}
			saved = append(saved, e)
			env.clock.Add(24 * time.Hour)
		}
		return saved
	}

	t.Run("list as json", func(t *testing.T) {
		env := setupServer(t, shared.ServerConfig{})
		seed(t, env)

		rec := do(t, env.srv.Handler(), http.MethodGet, "/moods", "u-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decode[struct {
			Count   int              `json:"count"`
			Entries []map[string]any `json:"entries"`
		}](t, rec)
		if body.Count != 3 || body.Entries[0]["mood"] != "Okay" {
			t.Errorf("expected newest first, got %+v", body)
		}
	})

	t.Run("list filters and formats", func(t *testing.T) {
		env := setupServer(t, shared.ServerConfig{})
		seed(t, env)
		h := env.srv.Handler()

		rec := do(t, h, http.MethodGet, "/moods?format=csv&limit=1", "u-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
			t.Errorf("expected csv content type, got %s", ct)
		}
		if lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n"); len(lines) != 2 {
			t.Errorf("expected header plus one row, got %d lines", len(lines))
		}

		rec = do(t, h, http.MethodGet, "/moods?since=2026-03-11&format=json", "u-1", nil)
		if body := decode[struct {
			Count int `json:"count"`
		}](t, rec); body.Count != 2 {
			t.Errorf("expected 2 entries since the 11th, got %d", body.Count)
		}

		rec = do(t, h, http.MethodGet, "/moods?mood=happy", "u-1", nil)
		if body := decode[struct {
			Count int `json:"count"`
		}](t, rec); body.Count != 1 {
			t.Errorf("expected 1 happy entry, got %d", body.Count)
		}

		for _, q := range []string{"since=yesterday", "limit=-1", "format=xml", "mood=meh", "tz=Mars/Base"} {
			if rec := do(t, h, http.MethodGet, "/moods?"+q, "u-1", nil); rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", q, rec.Code)
			}
		}
	})

	t.Run("summary", func(t *testing.T) {
		env := setupServer(t, shared.ServerConfig{})
		seed(t, env)

		rec := do(t, env.srv.Handler(), http.MethodGet, "/moods/summary?days=30", "u-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		s := decode[tasks.Summary](t, rec)
		if s.Total != 3 || s.DaysCheckedIn != 3 || s.Counts[models.MoodSad] != 1 {
			t.Errorf("unexpected summary %+v", s)
		}
	})

	t.Run("delete today's entry reopens the gate", func(t *testing.T) {
		env := setupServer(t, shared.ServerConfig{})
		h := env.srv.Handler()

		act := createActivation(t, h, "u-1")
		rec := do(t, h, http.MethodPost, "/checkins/"+act.ID+"/submit", "u-1", map[string]string{"mood": "Happy"})
		id := decode[map[string]any](t, rec)["id"].(string)

		if rec := do(t, h, http.MethodDelete, "/moods/"+id, "u-2", nil); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 deleting another user's entry, got %d", rec.Code)
		}
		if rec := do(t, h, http.MethodDelete, "/moods/"+id, "u-1", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if rec := do(t, h, http.MethodDelete, "/moods/"+id, "u-1", nil); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 on second delete, got %d", rec.Code)
		}

		if again := createActivation(t, h, "u-1"); again.Decision != "needs_check_in" {
			t.Errorf("expected a fresh prompt after deleting today's entry, got %s", again.Decision)
		}
	})
}

func TestRateLimit(t *testing.T) {
	env := setupServer(t, shared.ServerConfig{RateLimit: 1, RateBurst: 2})
	h := env.srv.Handler()

	for i := range 2 {
		if rec := do(t, h, http.MethodGet, "/moods", "u-1", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := do(t, h, http.MethodGet, "/moods", "u-1", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	if rec := do(t, h, http.MethodGet, "/moods", "u-2", nil); rec.Code != http.StatusOK {
		t.Errorf("other users have their own bucket, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("public routes are not limited, got %d", rec.Code)
	}
}

func TestBasicRouter(t *testing.T) {
	tag := func(name string, seen *[]string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				*seen = append(*seen, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("first middleware added runs first", func(t *testing.T) {
		var seen []string
		r := NewBasicRouter()
		r.Use(tag("outer", &seen), tag("inner", &seen))
		r.Handle(http.MethodGet, "/x", ok)

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
		if strings.Join(seen, ",") != "outer,inner" {
			t.Errorf("unexpected order %v", seen)
		}
	})

	t.Run("middleware applies to routes registered after Use", func(t *testing.T) {
		var seen []string
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/open", ok)
		r.Use(tag("guard", &seen))
		r.Handle(http.MethodGet, "/closed", ok)

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/open", nil))
		if len(seen) != 0 {
			t.Errorf("expected no middleware on /open, got %v", seen)
		}
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/closed", nil))
		if len(seen) != 1 {
			t.Errorf("expected guard on /closed, got %v", seen)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle("get", "/x", ok)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Recover", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)

		h := Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("expected panic to be logged, got %q", buf.String())
		}
	})

	t.Run("RequestLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)

		h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		req := httptest.NewRequest(http.MethodGet, "/brew", nil)
		req.Header.Set(UserHeader, "u-9")
		h.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		for _, want := range []string{"path=/brew", "status=418", "user=u-9"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in log output %q", want, out)
			}
		}
	})

	t.Run("RequireUser", func(t *testing.T) {
		var got string
		h := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = UserFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(UserHeader, "  u-3 ")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if got != "u-3" {
			t.Errorf("expected trimmed user, got %q", got)
		}
	})
}

func TestRegistry(t *testing.T) {
	newActivation := func(t *testing.T, mock *clock.Mock, user string) *gate.Activation {
		t.Helper()
		g := gate.New(mtesting.NewMockStore(mock), gate.Options{Clock: mock, Logger: log.New(io.Discard)})
		a := g.Activate(user)
		if _, err := a.Evaluate(context.Background()); err != nil {
			t.Fatalf("evaluate failed: %v", err)
		}
		return a
	}

	t.Run("reaps finished activations after retention", func(t *testing.T) {
		mock := clock.NewMock()
		reg := NewRegistry(mock, time.Minute, log.New(io.Discard))
		a := newActivation(t, mock, "u-1")
		reg.Add(a)

		if _, err := a.Submit(context.Background(), models.MoodHappy, ""); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		time.Sleep(20 * time.Millisecond)

		mock.Add(59 * time.Second)
		if reg.Len() != 1 {
			t.Fatalf("activation reaped too early")
		}

		mock.Add(time.Second)
		deadline := time.Now().Add(time.Second)
		for reg.Len() != 0 {
			if time.Now().After(deadline) {
				t.Fatal("activation was not reaped")
			}
			time.Sleep(5 * time.Millisecond)
		}
	})

	t.Run("disposes an activation left armed without a timer", func(t *testing.T) {
		mock := clock.NewMock()
		store := mtesting.NewMockStore(mock)
		g := gate.New(store, gate.Options{Clock: mock, Logger: log.New(io.Discard)})
		a := g.Activate("u-1")
		if _, err := a.Evaluate(context.Background()); err != nil {
			t.Fatalf("evaluate failed: %v", err)
		}
		reg := NewRegistry(mock, time.Minute, log.New(io.Discard))
		reg.Add(a)

		// The timer fires while a failing submission holds the latch, so nothing is rescheduled.
		store.SetWriteErr(errors.New("disk full"))
		started, release := store.HoldInserts()
		result := make(chan error, 1)
		go func() {
			_, err := a.Submit(context.Background(), models.MoodHappy, "")
			result <- err
		}()
		<-started
		mock.Add(30 * time.Second)
		time.Sleep(20 * time.Millisecond)
		release()
		if err := <-result; !errors.Is(err, shared.ErrStoreWrite) {
			t.Fatalf("expected ErrStoreWrite, got %v", err)
		}

		mock.Add(59 * time.Second)
		time.Sleep(20 * time.Millisecond)
		if a.State() != gate.Armed {
			t.Fatalf("expected armed before the idle deadline, got %s", a.State())
		}

		mock.Add(time.Second)
		select {
		case <-a.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("idle activation was not disposed, state %s", a.State())
		}
		if a.State() != gate.Disposed {
			t.Fatalf("expected disposed, got %s", a.State())
		}
		time.Sleep(20 * time.Millisecond)

		mock.Add(time.Minute)
		deadline := time.Now().Add(time.Second)
		for reg.Len() != 0 {
			if time.Now().After(deadline) {
				t.Fatal("idle activation was not reaped")
			}
			time.Sleep(5 * time.Millisecond)
		}
		if store.Inserts() != 1 {
			t.Errorf("expected only the failed write, got %d", store.Inserts())
		}
	})

	t.Run("scopes lookups to the owner", func(t *testing.T) {
		mock := clock.NewMock()
		reg := NewRegistry(mock, 0, nil)
		a := newActivation(t, mock, "u-1")
		reg.Add(a)
		defer reg.DisposeAll()

		if _, err := reg.Get("u-1", a.ID()); err != nil {
			t.Errorf("owner lookup failed: %v", err)
		}
		if _, err := reg.Get("u-2", a.ID()); !errors.Is(err, shared.ErrActivationNotFound) {
			t.Errorf("expected ErrActivationNotFound, got %v", err)
		}
	})

	t.Run("dispose all", func(t *testing.T) {
		mock := clock.NewMock()
		reg := NewRegistry(mock, 0, nil)
		a := newActivation(t, mock, "u-1")
		reg.Add(a)

		reg.DisposeAll()

		if a.State() != gate.Disposed {
			t.Errorf("expected disposed, got %s", a.State())
		}
		if reg.Len() != 0 {
			t.Errorf("expected empty registry, got %d", reg.Len())
		}
	})
}

func TestServe(t *testing.T) {
	env := setupServer(t, shared.ServerConfig{ShutdownTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- env.srv.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, base+"/checkins", nil)
	req.Header.Set(UserHeader, "u-1")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("checkin request failed: %v", err)
	}
	resp.Body.Close()
	if env.srv.Registry().Len() != 1 {
		t.Fatalf("expected one live activation")
	}

	cancel()
	select {
	case err := <-errs:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}

	if env.srv.Registry().Len() != 0 {
		t.Errorf("expected pending activations to be disposed on shutdown")
	}
}
