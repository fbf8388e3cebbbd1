// Package stubserver is a self-contained, in-memory implementation of the
// tutor backend contracts, for development and tests: form-encoded chat
// with per-session history, multipart ASR transcription, and synthesized
// reply assets served as WAV. Replies are canned but deterministic enough
// to drive the client end to end without an LLM or ASR model.
package stubserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// The real backend keeps at most this many turns of history per session.
const contextWindow = 20

// turn is one entry in a session's history.
type turn struct {
	role string // "student" or "tutor"
	text string
}

// Server holds all stub state in memory.
type Server struct {
	log  zerolog.Logger
	http *http.Server

	mu       sync.Mutex
	sessions map[string][]turn
	assets   map[string][]byte
}

// New creates an empty stub backend.
func New(log zerolog.Logger) *Server {
	return &Server{
		log:      log,
		sessions: make(map[string][]turn),
		assets:   make(map[string][]byte),
	}
}

// Handler builds the router. Exposed separately from Start so tests can
// mount it on an httptest server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer)
	r.Use(Logger(s.log))
	r.Use(Instrument)

	r.Post("/api/chat/respond", s.handleChatRespond)
	r.Post("/api/asr/transcribe", s.handleTranscribe)
	r.Get("/api/audio/{filename}", s.handleAudio)
	r.Get("/api/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// Start serves the stub on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("stub backend starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	s.log.Info().Msg("stub backend shutting down")
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
}
