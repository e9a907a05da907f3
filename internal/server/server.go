// Package server exposes the timeline over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/perfline/perfline/internal/timeline"
	"github.com/perfline/perfline/pkg/domain"
	"go.uber.org/zap"
)

// Server wires the entry buffer and recorder behind an HTTP router.
type Server struct {
	buffer   *timeline.EntryBuffer
	recorder *timeline.Recorder
	router   *mux.Router
	server   *http.Server
	logger   *zap.Logger
}

// QueueEntryRequest is the body of POST /api/v1/entries. Detail stays
// raw; the buffer never inspects it.
type QueueEntryRequest struct {
	Name      string          `json:"name"`
	StartTime float64         `json:"startTime"`
	Duration  float64         `json:"duration"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}

// MeasureRequest is the body of POST /api/v1/measures.
type MeasureRequest struct {
	Name      string          `json:"name"`
	StartMark string          `json:"startMark"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}

// EntriesResponse wraps an ordered entry list.
type EntriesResponse struct {
	Entries []*domain.Entry `json:"entries"`
	Count   int             `json:"count"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Buffered  int       `json:"buffered"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a server around the given buffer and recorder.
func New(cfg *timeline.Config, buffer *timeline.EntryBuffer, recorder *timeline.Recorder, logger *zap.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		buffer:   buffer,
		recorder: recorder,
		router:   router,
		logger:   logger,
		server: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	router.Use(s.loggingMiddleware)
	router.Use(corsMiddleware)
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/entries", s.handleQueueEntry).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/api/v1/entries", s.handlePeek).Methods("GET")
	s.router.HandleFunc("/api/v1/entries/drain", s.handleDrain).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/api/v1/marks/{name}", s.handleMark).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/api/v1/measures", s.handleMeasure).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/api/v1/stats", s.handleStats).Methods("GET", "OPTIONS")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleQueueEntry(w http.ResponseWriter, r *http.Request) {
	var req QueueEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entry, err := domain.NewEntry(req.Name, req.StartTime, req.Duration, req.Detail)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.buffer.Enqueue(entry)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(entry)
}

func (s *Server) handlePeek(w http.ResponseWriter, r *http.Request) {
	entries := s.buffer.Peek()
	s.writeEntries(w, entries)
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	entries := s.buffer.Drain()
	s.writeEntries(w, entries)
}

func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var detail json.RawMessage
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&detail); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	entry, err := s.recorder.Mark(name, detail)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(entry)
}

func (s *Server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	var req MeasureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entry, err := s.recorder.Measure(req.Name, req.StartMark, req.Detail)
	switch {
	case err == nil:
	case errors.Is(err, timeline.ErrUnknownMark):
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	default:
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(entry)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.buffer.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Buffered:  s.buffer.Len(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) writeEntries(w http.ResponseWriter, entries []*domain.Entry) {
	if entries == nil {
		entries = []*domain.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EntriesResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if s.logger != nil {
			s.logger.Debug("Request handled",
				zap.String("method", r.Method),
				zap.String("path", r.RequestURI),
				zap.Duration("duration", time.Since(start)),
			)
		}
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start begins serving. It blocks until the listener fails or Stop is
// called.
func (s *Server) Start() error {
	if s.logger != nil {
		s.logger.Info("API server starting", zap.String("addr", s.server.Addr))
	}
	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("API server shutting down")
	}
	return s.server.Shutdown(ctx)
}
