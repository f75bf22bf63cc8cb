// Package httpapi exposes a small read-only introspection surface
// over a running runtime, for an optional stream overlay or debugger.
// It never drives gameplay: every handler is a GET that reads a
// Snapshot and never touches the Clock, Scheduler, or Judge directly.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Mode describes what the runtime is currently doing.
type Mode string

const (
	ModeIdle        Mode = "idle"
	ModeCalibrating Mode = "calibrating"
	ModeRecording   Mode = "recording"
	ModePlaying     Mode = "playing"
	ModePaused      Mode = "paused"
	ModeGameOver    Mode = "game_over"
)

// Snapshot is the read-only state the UI needs to display: current
// mode, last error, and the computed offsets, plus score/combo for an
// overlay.
type Snapshot struct {
	Mode            Mode    `json:"mode"`
	LastError       string  `json:"last_error,omitempty"`
	AudioOffsetSec  float64 `json:"audio_offset_sec"`
	VisualOffsetSec float64 `json:"visual_offset_sec"`
	LatencyCompSec  float64 `json:"latency_comp_sec"`
	Score           int     `json:"score"`
	Combo           int     `json:"combo"`
}

// Provider supplies the current Snapshot. A runtime orchestrator
// implements this by reading its Clock/Judge/Scheduler state.
type Provider interface {
	Snapshot() Snapshot
}

// Server serves the status endpoint over plain net/http.
type Server struct {
	logger   *slog.Logger
	provider Provider
	mux      *http.ServeMux
}

// NewServer constructs a status server backed by provider.
func NewServer(logger *slog.Logger, provider Provider) *Server {
	s := &Server{logger: logger, provider: provider, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.provider.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware allows a browser-based overlay served from a
// different origin (e.g. a local stream-capture page) to poll status.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encode response", "error", err)
	}
}
