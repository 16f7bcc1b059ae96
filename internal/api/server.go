// Package api provides the HTTP API over the run archive.
// GET endpoints are public and read-only.
// POST and DELETE endpoints require a bearer token, and launching a run is
// rate limited per client.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/engine"
	"github.com/talgya/dilemma-sim/internal/experiment"
	"github.com/talgya/dilemma-sim/internal/persistence"
	"github.com/talgya/dilemma-sim/internal/report"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

// Launch defaults. Zero-valued Server fields fall back to these.
const (
	DefaultLaunchLimit = 10
	DefaultMaxTrials   = 100
	DefaultMaxRounds   = 20000
	DefaultRunTimeout  = 10 * time.Minute

	defaultListLimit = 20
	maxListLimit     = 200
)

// Server serves archived runs over HTTP and launches preset runs on request.
type Server struct {
	DB           *persistence.DB
	Orchestrator *engine.Orchestrator
	Port         int
	AdminKey     string // Bearer token for POST and DELETE. Empty = disabled.

	LaunchLimit int           // Launches per client per hour
	MaxTrials   int           // Upper bound on trials per launched run
	MaxRounds   int           // Upper bound on rounds per launched run
	RunTimeout  time.Duration // Deadline for one launched run

	srv *http.Server
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	limit := s.LaunchLimit
	if limit == 0 {
		limit = DefaultLaunchLimit
	}
	launchLimiter := NewRateLimiter(limit, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/presets", s.handlePresets)

	// Listing is public, launching is admin only.
	mux.HandleFunc("/api/v1/runs", s.handleRuns(
		s.adminOnly(RateLimitMiddleware(launchLimiter, s.handleLaunch)),
	))
	mux.HandleFunc("/api/v1/runs/", s.handleRunRoutes)

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on every method
// other than GET.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no PDSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status := map[string]any{
		"name":       "dilemma-sim",
		"presets":    len(config.Presets()),
		"admin_auth": s.AdminKey != "",
		"archive":    s.DB != nil,
	}
	if s.DB != nil {
		if v, err := s.DB.GetMeta("schema_version"); err == nil {
			status["schema_version"] = v
		}
	}
	writeJSON(w, status)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type presetSummary struct {
		Name        string        `json:"name"`
		Group       string        `json:"group"`
		Description string        `json:"description"`
		Config      config.Config `json:"config"`
	}
	presets := config.Presets()
	out := make([]presetSummary, 0, len(presets))
	for _, p := range presets {
		out = append(out, presetSummary{
			Name:        p.Name,
			Group:       p.Group,
			Description: p.Description,
			Config:      p.Config(),
		})
	}
	writeJSON(w, out)
}

// handleRuns dispatches between listing (GET) and launching (POST).
func (s *Server) handleRuns(launch http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleListRuns(w, r)
		case http.MethodPost:
			launch(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}
	runs, err := s.DB.ListRuns(limit)
	if err != nil {
		slog.Error("list runs failed", "error", err)
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.RunRecord{}
	}
	writeJSON(w, runs)
}

// handleRunRoutes serves /api/v1/runs/:id and /api/v1/runs/:id/csv.
func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	id, sub, _ := strings.Cut(path, "/")
	if id == "" || (sub != "" && sub != "csv") {
		http.NotFound(w, r)
		return
	}

	switch {
	case r.Method == http.MethodGet && sub == "":
		s.handleRunDetail(w, id)
	case r.Method == http.MethodGet && sub == "csv":
		s.handleRunCSV(w, id)
	case r.Method == http.MethodDelete && sub == "":
		s.adminOnly(func(w http.ResponseWriter, r *http.Request) {
			s.handleDeleteRun(w, id)
		})(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) loadRun(w http.ResponseWriter, id string) (*persistence.Run, bool) {
	if !s.requireDB(w) {
		return nil, false
	}
	run, err := s.DB.LoadRun(id)
	if errors.Is(err, persistence.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		slog.Error("load run failed", "id", id, "error", err)
		http.Error(w, "load failed", http.StatusInternalServerError)
		return nil, false
	}
	return run, true
}

func (s *Server) handleRunDetail(w http.ResponseWriter, id string) {
	run, ok := s.loadRun(w, id)
	if !ok {
		return
	}
	writeJSON(w, run)
}

func (s *Server) handleRunCSV(w http.ResponseWriter, id string) {
	run, ok := s.loadRun(w, id)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".csv"))
	var reg *strategy.Registry
	if s.Orchestrator != nil {
		reg = s.Orchestrator.Registry
	}
	if err := report.WriteCSV(w, run.Aggregates, reg); err != nil {
		slog.Error("csv export failed", "id", id, "error", err)
	}
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, id string) {
	if !s.requireDB(w) {
		return
	}
	err := s.DB.DeleteRun(id)
	if errors.Is(err, persistence.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("delete run failed", "id", id, "error", err)
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// launchRequest selects a preset and optionally shrinks it.
type launchRequest struct {
	Preset string `json:"preset"`
	Name   string `json:"name,omitempty"`
	Seed   int64  `json:"seed,omitempty"`
	Trials int    `json:"trials,omitempty"`
	Rounds int    `json:"rounds,omitempty"`
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	if s.Orchestrator == nil {
		http.Error(w, "run launch not available", http.StatusServiceUnavailable)
		return
	}
	var req launchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	preset, err := config.Lookup(req.Preset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var overrides []config.Override
	if req.Trials > 0 {
		overrides = append(overrides, config.WithTrials(req.Trials))
	}
	if req.Rounds > 0 {
		overrides = append(overrides, config.WithRounds(req.Rounds))
	}
	if req.Seed != 0 {
		seed := req.Seed
		overrides = append(overrides, func(c *config.Config) { c.Run.Seed = seed })
	}

	cfg := config.Compose(preset.Config(), overrides...)
	if cfg.Trials > s.maxTrials() || cfg.Rounds > s.maxRounds() {
		http.Error(w, fmt.Sprintf("run too large: at most %d trials and %d rounds",
			s.maxTrials(), s.maxRounds()), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout())
	defer cancel()

	runner := experiment.NewRunner(s.Orchestrator, overrides...)
	pr, err := runner.RunPreset(ctx, preset)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "run exceeded its deadline", http.StatusGatewayTimeout)
		return
	case errors.Is(err, context.Canceled):
		slog.Info("run launch abandoned by client", "preset", preset.Name)
		return
	case err != nil:
		slog.Error("run launch failed", "preset", preset.Name, "error", err)
		http.Error(w, "run failed", http.StatusInternalServerError)
		return
	}

	name := req.Name
	if name == "" {
		name = preset.Name
	}
	id, err := s.DB.SaveRun(name, pr.Config, pr.Result)
	if err != nil {
		slog.Error("archive run failed", "preset", preset.Name, "error", err)
		http.Error(w, "archive failed", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, http.StatusCreated, map[string]any{
		"id":         id,
		"name":       name,
		"preset":     preset.Name,
		"seed":       pr.Result.Seed,
		"trials":     len(pr.Result.Trials),
		"rounds":     pr.Config.Rounds,
		"elapsed_ms": pr.Result.Elapsed.Milliseconds(),
		"aggregates": pr.Result.Aggregates,
	})
}

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.DB == nil {
		http.Error(w, "archive not available", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) maxTrials() int {
	if s.MaxTrials > 0 {
		return s.MaxTrials
	}
	return DefaultMaxTrials
}

func (s *Server) maxRounds() int {
	if s.MaxRounds > 0 {
		return s.MaxRounds
	}
	return DefaultMaxRounds
}

func (s *Server) runTimeout() time.Duration {
	if s.RunTimeout > 0 {
		return s.RunTimeout
	}
	return DefaultRunTimeout
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
