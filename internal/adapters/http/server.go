// Package http exposes one machine over a small JSON API. The engine is
// single-threaded by design, so the handler serializes all access behind
// a mutex; the machine itself never sees concurrent calls.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dverbeek/ramify"
	"github.com/dverbeek/ramify/pkg/domain"
)

// Server drives one Machine on behalf of HTTP clients.
type Server struct {
	mu      sync.Mutex
	machine *ramify.Machine
	metrics *Metrics
	logger  *slog.Logger
}

// NewHandler builds the HTTP handler for a machine. metrics may be nil.
func NewHandler(machine *ramify.Machine, metrics *Metrics, logger *slog.Logger) http.Handler {
	s := &Server{machine: machine, metrics: metrics, logger: logger}

	r := chi.NewRouter()
	r.Get("/state", s.handleState)
	r.Post("/step", s.handleStep)
	r.Post("/reset", s.handleReset)
	r.Get("/events", s.handleEvents)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type stateResponse struct {
	State     string            `json:"state"`
	Leaf      string            `json:"leaf"`
	Halted    bool              `json:"halted"`
	Variables map[string]string `json:"variables"`
	Events    []string          `json:"events"`
}

type stepRequest struct {
	Event string `json:"event"`
}

type stepResponse struct {
	State  string   `json:"state"`
	Halted bool     `json:"halted"`
	Log    []string `json:"log"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := stateResponse{
		State:     s.machine.CurrentState(),
		Leaf:      s.machine.LeafState(),
		Halted:    s.machine.Halted(),
		Variables: s.machine.Variables(),
		Events:    s.machine.PossibleEvents(),
	}
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			s.logger.Warn("step: invalid request body", "error", err)
			return
		}
	}

	s.mu.Lock()
	if s.machine.Halted() {
		s.mu.Unlock()
		http.Error(w, domain.ErrHalted.Error(), http.StatusConflict)
		return
	}
	state, log := s.machine.Step(req.Event)
	halted := s.machine.Halted()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.StepsTotal.Inc()
	}
	s.writeJSON(w, http.StatusOK, stepResponse{State: state, Halted: halted, Log: log})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.machine.Reset()
	state := s.machine.CurrentState()
	log := s.machine.DrainLog()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("reset failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, stepResponse{State: state, Log: log})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	events := s.machine.PossibleEvents()
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, map[string][]string{"events": events})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
