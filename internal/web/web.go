package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"meetblocks/internal/config"
	appLog "meetblocks/internal/log"
	"meetblocks/internal/runner"
)

// Server exposes the latest run over HTTP in watch mode.
type Server struct {
	cfg   *config.Config
	store *runner.Store
	mux   *http.ServeMux
}

// NewServer constructs a new Server reading from store.
func NewServer(cfg *config.Config, store *runner.Store) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="meetblocks", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, cfg *config.Config, store *runner.Store) error {
	s := NewServer(cfg, store)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/overview", s.handleOverview)
	s.mux.HandleFunc("GET /api/matrix", s.handleMatrix)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// statusResponse is the JSON response shape for /api/status.
type statusResponse struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Events     []string  `json:"events"`
	Slots      int       `json:"slots"`
	People     int       `json:"people"`
	Ranges     int       `json:"ranges"`
	Files      []string  `json:"files"`
	Skipped    int       `json:"skipped_facts"`
}

// rangeDTO is a JSON-friendly view of a detected range.
type rangeDTO struct {
	Label  string    `json:"label"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	People []string  `json:"people"`
}

// overviewResponse is the JSON response shape for /api/overview.
type overviewResponse struct {
	RunID  string     `json:"run_id"`
	Labels []string   `json:"labels"`
	Rows   [][]string `json:"rows"`
	Ranges []rangeDTO `json:"ranges"`
}

// columnDTO describes one matrix column.
type columnDTO struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Person bool   `json:"person,omitempty"`
}

// matrixResponse is the JSON response shape for /api/matrix.
type matrixResponse struct {
	RunID   string      `json:"run_id"`
	Columns []columnDTO `json:"columns"`
	Rows    [][]string  `json:"rows"`
}

// latest writes a 503 and returns false until the first run has completed.
func (s *Server) latest(w http.ResponseWriter) (runner.Snapshot, bool) {
	snap, ok := s.store.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no completed run yet")
	}
	return snap, ok
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.latest(w)
	if !ok {
		return
	}
	res := snap.Result
	writeJSON(w, http.StatusOK, statusResponse{
		RunID:      snap.RunID,
		StartedAt:  snap.StartedAt,
		FinishedAt: snap.FinishedAt,
		Events:     nonNil(snap.EventNames),
		Slots:      len(res.Slots),
		People:     len(res.People),
		Ranges:     len(res.Ranges),
		Files:      nonNil(snap.Files),
		Skipped:    res.Stats.Skipped(),
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.latest(w)
	if !ok {
		return
	}
	ov := snap.Result.Overview

	ranges := make([]rangeDTO, 0, len(ov.Ranges))
	for _, r := range ov.Ranges {
		ranges = append(ranges, rangeDTO{
			Label:  r.Label(),
			Start:  r.Start,
			End:    r.End,
			People: nonNil(r.People),
		})
	}
	writeJSON(w, http.StatusOK, overviewResponse{
		RunID:  snap.RunID,
		Labels: nonNil(ov.Labels),
		Rows:   nonNilRows(ov.Rows),
		Ranges: ranges,
	})
}

func (s *Server) handleMatrix(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.latest(w)
	if !ok {
		return
	}
	mx := snap.Result.Matrix

	cols := make([]columnDTO, 0, len(mx.Columns))
	for _, c := range mx.Columns {
		cols = append(cols, columnDTO{Name: c.Name, Kind: c.Kind.String(), Person: c.Person})
	}
	writeJSON(w, http.StatusOK, matrixResponse{
		RunID:   snap.RunID,
		Columns: cols,
		Rows:    nonNilRows(mx.Rows),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilRows(rows [][]string) [][]string {
	if rows == nil {
		return [][]string{}
	}
	return rows
}
