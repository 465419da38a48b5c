// Package app provides the top-level application lifecycle for the auction
// server. It wires together stores, caches, the engine, services, and the
// HTTP/WebSocket server, and runs them until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hallbid/auctiond/internal/config"
	"github.com/hallbid/auctiond/internal/engine"
	"github.com/hallbid/auctiond/internal/events"
	"github.com/hallbid/auctiond/internal/server"
	"github.com/hallbid/auctiond/internal/server/handler"
	"github.com/hallbid/auctiond/internal/server/ws"
	"github.com/hallbid/auctiond/internal/service"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the engine,
// the WebSocket hub, and the HTTP server, and blocks until the context is
// cancelled. On return it runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Int("port", a.cfg.Server.Port),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Engine and event plumbing.
	pub := events.NewPublisher(deps.SignalBus, deps.StateCache, a.logger)
	eng := engine.New(
		engine.Config{
			OpenSeconds:  a.cfg.Auction.OpenSeconds,
			FinalSeconds: a.cfg.Auction.FinalSeconds,
		},
		engine.Stores{
			Auctions: deps.AuctionStore,
			Bids:     deps.BidStore,
			Teams:    deps.TeamStore,
			Items:    deps.ItemStore,
		},
		pub,
		deps.Notifier,
		a.logger,
	)

	// Services.
	auctionSvc := service.NewAuctionService(eng, deps.AuctionStore, deps.BidStore, deps.ItemStore, a.logger)
	bidSvc := service.NewBidService(eng, deps.BidStore, deps.TeamStore, deps.ItemStore, deps.RateLimiter, pub, a.logger)
	teamSvc := service.NewTeamService(deps.TeamStore, bidSvc, a.logger)
	itemSvc := service.NewItemService(deps.ItemStore, a.logger)

	// HTTP surface.
	hub := ws.NewHub(deps.SignalBus, deps.StateCache, a.logger)
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Postgres, deps.Redis, a.logger),
		Auctions: handler.NewAuctionHandler(auctionSvc, a.logger),
		Bids:     handler.NewBidHandler(bidSvc, a.logger),
		Teams:    handler.NewTeamHandler(teamSvc, a.logger),
		Items:    handler.NewItemHandler(itemSvc, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eng.Run(ctx)
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
