// Package server assembles the HTTP mux, middleware chain, and WebSocket
// endpoint for the gateway API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/predictgate/predictgate/internal/domain"
	"github.com/predictgate/predictgate/internal/server/handler"
	"github.com/predictgate/predictgate/internal/server/middleware"
	"github.com/predictgate/predictgate/internal/server/ws"
)

// writeRateLimit is the per-client budget for state-changing endpoints.
const (
	writeRateLimit  = 30
	writeRateWindow = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Session *handler.SessionHandler
	Markets *handler.MarketHandler
	Admin   *handler.AdminHandler
}

// Server is the gateway's HTTP + WebSocket front end.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (logging, CORS, auth) applied. limiter may be nil to
// disable rate limiting on write endpoints.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	limited := func(h http.HandlerFunc) http.Handler {
		if limiter == nil {
			return h
		}
		return middleware.RateLimit(limiter, writeRateLimit, writeRateWindow)(h)
	}

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Session endpoints (landing page).
	mux.HandleFunc("GET /api/session", handlers.Session.Status)
	mux.Handle("POST /api/session/connect", limited(handlers.Session.Connect))
	mux.HandleFunc("POST /api/session/disconnect", handlers.Session.Disconnect)

	// Market endpoints (home page).
	mux.HandleFunc("GET /api/markets", handlers.Markets.List)
	mux.Handle("POST /api/markets/refresh", limited(handlers.Markets.Refresh))
	mux.Handle("POST /api/markets/{id}/bets", limited(handlers.Markets.PlaceBet))
	mux.Handle("POST /api/markets/{id}/claim", limited(handlers.Markets.Claim))

	// Admin endpoints (admin page, owner gated).
	mux.HandleFunc("GET /api/admin", handlers.Admin.Status)
	mux.Handle("POST /api/admin/markets", limited(handlers.Admin.CreateMarket))
	mux.Handle("POST /api/admin/markets/{id}/resolve", limited(handlers.Admin.ResolveMarket))
	mux.HandleFunc("GET /api/admin/journal", handlers.Admin.Journal)
	mux.HandleFunc("GET /api/admin/archives", handlers.Admin.ListArchives)
	mux.HandleFunc("GET /api/admin/archives/{path...}", handlers.Admin.GetArchive)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
