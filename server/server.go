// Package server exposes the journal of the accounts over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/etnz/journal"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Store is the persistence the server reads from and commits imports to.
type Store interface {
	journal.Store
	SaveImport(ctx context.Context, res journal.ImportResult) error
	EquityCurve(ctx context.Context, account string) (journal.EquityCurve, error)
	Accounts(ctx context.Context) ([]string, error)
	// DataVersion changes when another process writes to the store.
	DataVersion(ctx context.Context) (int64, error)
}

// Config holds server configuration
type Config struct {
	Addr     string
	Log      zerolog.Logger
	Store    Store
	Settings journal.Settings
	// CacheTTL is how long a computed metric vector is served from cache. Imports
	// invalidate the cache of their account, and writes by another process (a
	// stop-loss added with the CLI) invalidate the whole cache.
	CacheTTL time.Duration
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	server     *http.Server
	log        zerolog.Logger
	store      Store
	settings   journal.Settings
	reconciler *journal.Reconciler
	metrics    *cache.Cache
	version    atomic.Int64
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "server").Logger(),
		store:      cfg.Store,
		settings:   cfg.Settings,
		reconciler: journal.NewReconciler(cfg.Store, cfg.Settings, cfg.Log),
		metrics:    cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/accounts", s.handleAccounts)
	s.router.Route("/accounts/{account}", func(r chi.Router) {
		r.Get("/metrics", s.handleMetrics)
		r.Get("/positions", s.handlePositions)
		r.Post("/imports", s.handleImport)
	})
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// invalidate drops the cached metric vectors of 'account'.
func (s *Server) invalidate(account string) {
	prefix := account + "?"
	for key := range s.metrics.Items() {
		if strings.HasPrefix(key, prefix) {
			s.metrics.Delete(key)
		}
	}
}

// syncCache drops every cached metric vector when the store was written by
// another process since the last call.
func (s *Server) syncCache(ctx context.Context) {
	v, err := s.store.DataVersion(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read store version")
		s.metrics.Flush()
		return
	}
	if old := s.version.Swap(v); old != v {
		s.log.Debug().Int64("version", v).Msg("Store changed, metrics cache flushed")
		s.metrics.Flush()
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
