// Package server exposes the replay service over HTTP: a small JSON API
// for races and sessions, and a WebSocket stream per session.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/alexkamer/Pit-Wall-Pro/internal/cache"
	"github.com/alexkamer/Pit-Wall-Pro/internal/database"
	"github.com/alexkamer/Pit-Wall-Pro/internal/parser"
	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
	"github.com/alexkamer/Pit-Wall-Pro/internal/session"
)

// Server wires the archive, dataset cache and session manager to HTTP.
type Server struct {
	router   *chi.Mux
	logger   *slog.Logger
	db       *database.Manager
	cache    *cache.DatasetCache
	sessions *session.Manager
	parser   *parser.Parser

	httpServer *http.Server
}

// New builds the server and its routes.
func New(logger *slog.Logger, db *database.Manager, sessions *session.Manager, p *parser.Parser) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		db:       db,
		cache:    cache.NewDatasetCache(),
		sessions: sessions,
		parser:   p,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/races", s.handleListRaces)
		r.Get("/races/{raceID}/snapshot", s.handleSnapshot)
		r.Post("/races/{raceID}/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{sessionID}", s.handleSessionState)
		r.Delete("/sessions/{sessionID}", s.handleCloseSession)
	})
	s.router.Get("/ws/sessions/{sessionID}", s.handleStream)

	return s
}

// Router returns the HTTP handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// loadDataset returns the cached dataset for a race, loading it from the
// archive on first use.
func (s *Server) loadDataset(raceID uint) (*replay.Dataset, error) {
	return s.cache.GetOrLoad(raceID, func(id uint) (*replay.Dataset, error) {
		return s.db.LoadRace(id, s.parser)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
