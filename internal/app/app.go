// Package app provides the top-level application lifecycle for the
// prediction market gateway. It wires the infrastructure (journal store,
// caches, blob storage, notifications), builds the wallet session manager
// and market services on top, and runs the HTTP server, WebSocket hub, and
// auto-refresh loop until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predictgate/predictgate/internal/aggregator"
	s3blob "github.com/predictgate/predictgate/internal/blob/s3"
	"github.com/predictgate/predictgate/internal/config"
	"github.com/predictgate/predictgate/internal/contract"
	"github.com/predictgate/predictgate/internal/domain"
	"github.com/predictgate/predictgate/internal/orchestrator"
	"github.com/predictgate/predictgate/internal/server"
	"github.com/predictgate/predictgate/internal/server/handler"
	"github.com/predictgate/predictgate/internal/server/ws"
	"github.com/predictgate/predictgate/internal/service"
	"github.com/predictgate/predictgate/internal/wallet"
)

// shutdownTimeout bounds the graceful HTTP server drain.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the gateway's goroutines, and blocks
// until the context is cancelled. On return all registered cleanup
// functions have run.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting gateway",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("port", a.cfg.Server.Port),
	)
	a.logger.DebugContext(ctx, "effective configuration",
		slog.Any("config", config.RedactedConfig(a.cfg)),
	)
	defer a.Close()

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Wallet session manager.
	walletMgr := wallet.NewManager(a.cfg.Wallet, a.cfg.Provider, deps.MarkerStore, a.logger)
	a.closers = append(a.closers, walletMgr.Close)

	// Contract bindings and market aggregation.
	factory := contract.NewFactory(a.cfg.Chains, a.logger)
	agg := aggregator.New(deps.SnapshotCache, deps.EventBus, a.logger)
	markets := service.NewMarketService(walletMgr, factory, agg, a.cfg.Aggregator.AutoRefreshSeconds, a.logger)

	// Resolved market archiver (only with blob storage configured).
	var archiver domain.Archiver
	if deps.BlobWriter != nil {
		archiver = s3blob.NewArchiver(deps.BlobWriter, func() uint64 {
			return walletMgr.Session().ChainID
		}, a.logger)
	}

	orch := orchestrator.New(markets, deps.JournalStore, deps.EventBus, deps.Notifier, archiver, a.logger)

	// Session changes flow to the market service and onto the event bus.
	walletMgr.OnChange(markets.OnSessionChange)
	walletMgr.OnChange(publishSession(deps.EventBus, a.logger))

	if err := walletMgr.Start(ctx); err != nil {
		return fmt.Errorf("app: wallet manager: %w", err)
	}

	// HTTP + WebSocket front end.
	hub := ws.NewHub(deps.EventBus, a.logger)
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(walletMgr, a.logger),
		Session: handler.NewSessionHandler(walletMgr, factory, a.logger),
		Markets: handler.NewMarketHandler(walletMgr, markets, orch, a.logger),
		Admin:   handler.NewAdminHandler(markets, orch, deps.BlobReader, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := hub.Run(gctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := markets.Run(gctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return fmt.Errorf("app: %w", err)
	}
	return nil
}

// Close tears down all resources in reverse registration order. Safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down gateway")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
