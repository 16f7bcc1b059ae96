package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/dilemma-sim/internal/engine"
	"github.com/talgya/dilemma-sim/internal/logging"
	"github.com/talgya/dilemma-sim/internal/persistence"
)

const testKey = "secret"

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s := &Server{
		DB:           db,
		Orchestrator: &engine.Orchestrator{Logger: logging.Discard()},
		AdminKey:     testKey,
	}
	return s, s.Handler()
}

func do(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusAndPresets(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, http.MethodGet, "/api/v1/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	var status map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["schema_version"] != persistence.SchemaVersion || status["admin_auth"] != true {
		t.Errorf("unexpected status %v", status)
	}

	rec = do(h, http.MethodGet, "/api/v1/presets", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("presets: expected 200, got %d", rec.Code)
	}
	var presets []struct {
		Name   string `json:"name"`
		Group  string `json:"group"`
		Config struct {
			InitialWealth float64 `json:"initial_wealth"`
		} `json:"config"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&presets); err != nil {
		t.Fatalf("decode presets: %v", err)
	}
	if len(presets) != 14 {
		t.Fatalf("expected 14 presets, got %d", len(presets))
	}
	if presets[4].Name != "strong_rep" || presets[4].Group != "h1" || presets[4].Config.InitialWealth != 30 {
		t.Errorf("unexpected preset %+v", presets[4])
	}

	if rec := do(h, http.MethodPost, "/api/v1/presets", "", testKey); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST presets, got %d", rec.Code)
	}
}

func TestListRunsEmpty(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(h, http.MethodGet, "/api/v1/runs", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}

	for _, q := range []string{"0", "-1", "abc"} {
		if rec := do(h, http.MethodGet, "/api/v1/runs?limit="+q, "", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestLaunchRequiresToken(t *testing.T) {
	s, h := newTestServer(t)
	body := `{"preset":"default","trials":1,"rounds":1}`

	if rec := do(h, http.MethodPost, "/api/v1/runs", body, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/runs", body, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: expected 401, got %d", rec.Code)
	}

	s.AdminKey = ""
	if rec := do(s.Handler(), http.MethodPost, "/api/v1/runs", body, "anything"); rec.Code != http.StatusForbidden {
		t.Errorf("disabled admin: expected 403, got %d", rec.Code)
	}
}

func TestLaunchRejectsBadRequests(t *testing.T) {
	_, h := newTestServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"preset":`},
		{"unknown preset", `{"preset":"nope"}`},
		{"too many trials", `{"preset":"default","trials":1000}`},
		{"too many rounds", `{"preset":"default","trials":1,"rounds":1000000}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/api/v1/runs", tt.body, testKey)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLaunchArchiveAndFetch(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, http.MethodPost, "/api/v1/runs",
		`{"preset":"strong_rep","name":"smoke","seed":7,"trials":2,"rounds":5}`, testKey)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	var launched struct {
		ID         string                    `json:"id"`
		Name       string                    `json:"name"`
		Preset     string                    `json:"preset"`
		Seed       int64                     `json:"seed"`
		Trials     int                       `json:"trials"`
		Rounds     int                       `json:"rounds"`
		Aggregates map[string]map[string]any `json:"aggregates"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&launched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if launched.ID == "" || launched.Name != "smoke" || launched.Preset != "strong_rep" {
		t.Errorf("unexpected launch response %+v", launched)
	}
	if launched.Seed != 7 || launched.Trials != 2 || launched.Rounds != 5 {
		t.Errorf("overrides not applied: %+v", launched)
	}
	if _, ok := launched.Aggregates["ReputationAwareTFT"]; !ok {
		t.Errorf("expected ReputationAwareTFT aggregate, got %v", launched.Aggregates)
	}

	rec = do(h, http.MethodGet, "/api/v1/runs", "", "")
	var runs []persistence.RunRecord
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != launched.ID || runs[0].Rounds != 5 {
		t.Fatalf("unexpected listing %+v", runs)
	}

	rec = do(h, http.MethodGet, "/api/v1/runs/"+launched.ID, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("detail: expected 200, got %d", rec.Code)
	}
	var run struct {
		ID           string `json:"id"`
		Trials       int    `json:"trials"`
		TrialResults []struct {
			Seed int64 `json:"seed"`
		} `json:"trial_results"`
		Config struct {
			Reputation struct {
				AlphaC float64 `json:"alpha_c"`
			} `json:"reputation"`
		} `json:"config"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if run.ID != launched.ID || run.Trials != 2 || len(run.TrialResults) != 2 || run.Config.Reputation.AlphaC != 0.05 {
		t.Errorf("unexpected detail %+v", run)
	}

	rec = do(h, http.MethodGet, "/api/v1/runs/"+launched.ID+"/csv", "", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("csv: unexpected response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "strategy,survival_mean") {
		t.Errorf("unexpected csv body %q", rec.Body.String())
	}

	if rec := do(h, http.MethodDelete, "/api/v1/runs/"+launched.ID, "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("delete without token: expected 401, got %d", rec.Code)
	}
	if rec := do(h, http.MethodDelete, "/api/v1/runs/"+launched.ID, "", testKey); rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v1/runs/"+launched.ID, "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestRunRoutesNotFound(t *testing.T) {
	_, h := newTestServer(t)
	for _, path := range []string{"/api/v1/runs/missing", "/api/v1/runs/missing/csv", "/api/v1/runs/x/other"} {
		if rec := do(h, http.MethodGet, path, "", ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestArchiveUnavailable(t *testing.T) {
	s := &Server{AdminKey: testKey}
	h := s.Handler()
	if rec := do(h, http.MethodGet, "/api/v1/runs", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v1/status", "", ""); rec.Code != http.StatusOK {
		t.Errorf("status should not need the archive, got %d", rec.Code)
	}
}

func TestLaunchRateLimited(t *testing.T) {
	s, _ := newTestServer(t)
	s.LaunchLimit = 1
	h := s.Handler()

	// The limiter runs before the body is read, so a rejected body still
	// consumes the slot.
	if rec := do(h, http.MethodPost, "/api/v1/runs", `{"preset":"nope"}`, testKey); rec.Code != http.StatusBadRequest {
		t.Fatalf("first launch: expected 400, got %d", rec.Code)
	}
	rec := do(h, http.MethodPost, "/api/v1/runs", `{"preset":"nope"}`, testKey)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second launch: expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// Reads are never limited.
	if rec := do(h, http.MethodGet, "/api/v1/runs", "", ""); rec.Code != http.StatusOK {
		t.Errorf("expected listing to stay available, got %d", rec.Code)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("expected two requests allowed")
	}
	if rl.Allow("a") {
		t.Error("expected third request rejected")
	}
	if !rl.Allow("b") {
		t.Error("clients should not share a window")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Errorf("expected retry after 61s, got %d", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("expected a fresh window after the period")
	}
	if got := rl.RetryAfter("unknown"); got != 0 {
		t.Errorf("expected 0 for unknown client, got %d", got)
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		remote, xff, want string
	}{
		{"10.0.0.1:5555", "", "10.0.0.1"},
		{"[::1]:5555", "", "::1"},
		{"10.0.0.1:5555", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
		{"pipe", "", "pipe"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.xff != "" {
			req.Header.Set("X-Forwarded-For", tt.xff)
		}
		if got := clientAddr(req); got != tt.want {
			t.Errorf("clientAddr(%q, %q) = %q, want %q", tt.remote, tt.xff, got, tt.want)
		}
	}
}

func TestCORS(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://dash.example.com")
	_, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://dash.example.com" {
		t.Error("expected allowed origin echoed")
	}
}
