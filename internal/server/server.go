// Package server assembles the HTTP API: routing, middleware, and the
// WebSocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hallbid/auctiond/internal/domain"
	"github.com/hallbid/auctiond/internal/server/handler"
	"github.com/hallbid/auctiond/internal/server/middleware"
	"github.com/hallbid/auctiond/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Auctions *handler.AuctionHandler
	Bids     *handler.BidHandler
	Teams    *handler.TeamHandler
	Items    *handler.ItemHandler
}

// Server is the HTTP + WebSocket API server for the auction system.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (CORS, logging, per-IP rate limit) applied. API-key
// auth wraps only the admin routes; bid submission, reads, the event stream,
// and the health check stay open, since the engine trusts the caller-supplied
// team id. limiter may be nil to disable the request throttle.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	auth := middleware.Auth(cfg.APIKey)
	admin := func(h http.HandlerFunc) http.Handler { return auth(h) }

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Auction lifecycle commands (admin).
	mux.Handle("POST /api/auction/start", admin(handlers.Auctions.Start))
	mux.Handle("POST /api/auction/stop", admin(handlers.Auctions.Stop))
	mux.Handle("POST /api/auction/pause", admin(handlers.Auctions.Pause))
	mux.Handle("POST /api/auction/resume", admin(handlers.Auctions.Resume))
	mux.Handle("POST /api/auction/final", admin(handlers.Auctions.Final))
	mux.Handle("POST /api/auction/restart", admin(handlers.Auctions.Restart))

	// Auction reads. The live view exposes the sealed ledger, so it is
	// admin-only; the rest are shared.
	mux.HandleFunc("GET /api/auction/status", handlers.Auctions.Status)
	mux.HandleFunc("GET /api/auction/timer", handlers.Auctions.Timer)
	mux.Handle("GET /api/auction/live", admin(handlers.Auctions.Live))
	mux.HandleFunc("GET /api/auction/result/{id}", handlers.Auctions.Result)

	// Bids.
	mux.HandleFunc("POST /api/bids", handlers.Bids.Place)
	mux.HandleFunc("PUT /api/bids", handlers.Bids.Update)
	mux.HandleFunc("GET /api/bids/highest", handlers.Bids.Highest)
	mux.HandleFunc("GET /api/bids/mine", handlers.Bids.Mine)
	mux.HandleFunc("GET /api/bids/history/{auctionId}", handlers.Auctions.History)

	// Teams (admin).
	mux.Handle("POST /api/teams", admin(handlers.Teams.Create))
	mux.Handle("GET /api/teams", admin(handlers.Teams.List))
	mux.Handle("GET /api/teams/{id}", admin(handlers.Teams.Get))
	mux.Handle("PUT /api/teams/{id}/money", admin(handlers.Teams.SetMoney))
	mux.Handle("PUT /api/teams/{id}/eliminate", admin(handlers.Teams.SetEliminated))
	mux.Handle("DELETE /api/teams/{id}", admin(handlers.Teams.Delete))
	mux.Handle("POST /api/teams/{id}/bid", admin(handlers.Teams.PlaceBidFor))

	// Items (admin).
	mux.Handle("POST /api/items", admin(handlers.Items.Create))
	mux.Handle("GET /api/items", admin(handlers.Items.List))
	mux.Handle("GET /api/items/{id}", admin(handlers.Items.Get))
	mux.Handle("PUT /api/items/{id}", admin(handlers.Items.Update))
	mux.Handle("DELETE /api/items/{id}", admin(handlers.Items.Delete))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	if limiter != nil {
		h = middleware.RateLimit(limiter, 30, time.Second)(h)
	}
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
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
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
