package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/bgledger/internal/ledger"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host         string        // Host to bind to (default "localhost")
	Port         int           // Port to listen on (default 8080)
	ReadTimeout  time.Duration // Read timeout (default 30s)
	IdleTimeout  time.Duration // Idle timeout (default 60s)
	KeepAlive    time.Duration // SSE keep-alive interval (default 15s)
	MaxRequests  int           // Max concurrent short requests (default 100)
	MaxStreams   int           // Max concurrent SSE and WebSocket streams (default 32)
	ShutdownWait time.Duration // Grace period on shutdown (default 10s)
}

// DefaultConfig returns a ServerConfig with sensible defaults.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		IdleTimeout:  60 * time.Second,
		KeepAlive:    15 * time.Second,
		MaxRequests:  100,
		MaxStreams:   32,
		ShutdownWait: 10 * time.Second,
	}
}

// Server is the HTTP API server.
type Server struct {
	config   ServerConfig
	store    *ledger.Store
	handlers *Handlers
	limiter  *Limiter
	logger   *log.Logger
	version  string
}

// NewServer creates a new API server over store.
func NewServer(store *ledger.Store, config ServerConfig, version string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	limiter := NewLimiter(LimiterConfig{
		MaxRequests: config.MaxRequests,
		MaxStreams:  config.MaxStreams,
	})
	handlers := NewHandlers(store, version, limiter, logger)
	if config.KeepAlive > 0 {
		handlers.keepAlive = config.KeepAlive
	}

	return &Server{
		config:   config,
		store:    store,
		handlers: handlers,
		limiter:  limiter,
		logger:   logger,
		version:  version,
	}
}

// Limiter returns the request limiter for monitoring.
func (s *Server) Limiter() *Limiter {
	return s.limiter
}

// corsMiddleware adds CORS headers for browser access.
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

// loggingMiddleware logs all requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handlers.Health)
	mux.HandleFunc("GET /api/games", s.handlers.ListGames)
	mux.HandleFunc("POST /api/games", s.handlers.CreateGame)
	mux.HandleFunc("GET /api/games/{id}", s.handlers.View)
	mux.HandleFunc("GET /api/games/{id}/record", s.handlers.Record)
	mux.HandleFunc("POST /api/games/{id}/actions", s.handlers.Submit)
	mux.HandleFunc("GET /api/games/{id}/events", s.handlers.Events)
	mux.HandleFunc("GET /api/ws", s.handlers.WebSocket)

	return corsMiddleware(s.loggingMiddleware(mux))
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.Addr(),
		Handler:     s.Handler(),
		ReadTimeout: s.config.ReadTimeout,
		IdleTimeout: s.config.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", srv.Addr, "version", s.version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		wait := s.config.ShutdownWait
		if wait <= 0 {
			wait = 10 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.Background(), wait)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
