// Package server exposes availability reports over a JSON API and a
// websocket stream for the dashboard front-end.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"uptimeline/internal/models"
	"uptimeline/internal/scheduler"
	"uptimeline/internal/state"
)

// Server wraps HTTP serving of the availability API.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	sched      *scheduler.Scheduler
	store      *state.Store
}

// New creates a configured HTTP server.
func New(addr string, sched *scheduler.Scheduler, store *state.Store) *Server {
	s := &Server{
		sched: sched,
		store: store,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/ranges", s.handleRanges)
	r.Get("/api/devices", s.handleDevices)
	r.Get("/api/devices/{deviceID}/availability", s.handleAvailability)
	r.Get("/api/devices/{deviceID}/report", s.handleReport)
	r.Get("/api/stream", s.handleStream)

	s.handler = r
	s.httpServer = &http.Server{Addr: addr, Handler: r}
	return s
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleRanges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.Ranges())
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Devices())
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	rng := s.sched.Range()
	if raw := r.URL.Query().Get("range"); raw != "" {
		parsed, err := models.ParseRange(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rng = parsed
	}

	deviceID := chi.URLParam(r, "deviceID")
	report, err := s.sched.Compute(r.Context(), deviceID, rng)
	if err != nil {
		if errors.Is(err, scheduler.ErrUnknownDevice) {
			writeError(w, http.StatusNotFound, "unknown device")
			return
		}
		writeError(w, http.StatusBadGateway, "unable to load status log")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	report, ok := s.store.Latest(deviceID)
	if !ok {
		writeError(w, http.StatusNotFound, "no report published yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
