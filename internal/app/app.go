// Package app provides the top-level application lifecycle for the
// arena service. It wires together all dependencies (stores, locks,
// signal bus, blob storage, services, and notifications) and runs the
// HTTP server and websocket hub until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clawarena/arena/internal/config"
	"github.com/clawarena/arena/internal/server"
	"github.com/clawarena/arena/internal/server/handler"
	"github.com/clawarena/arena/internal/server/ws"
	"github.com/clawarena/arena/internal/service"
)

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
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

// Run is the main entry point. It wires all dependencies, builds the
// service and handler layers, and blocks serving requests until the
// context is cancelled. On return it runs all registered cleanup
// functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("backend", a.cfg.Storage.Backend),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// --- Service layer ---
	scores := service.NewScoreAggregator(deps.AgentStore)
	agents := service.NewAgentService(deps.AgentStore, a.logger)
	markets := service.NewMarketService(
		deps.MarketStore, deps.BetStore, deps.CommentStore, deps.AgentStore, deps.SignalBus, a.logger)
	wager := service.NewWagerService(
		deps.MarketStore, deps.BetStore, deps.AgentStore, deps.SignalBus, a.logger)
	settlement := service.NewSettlementService(
		deps.MarketStore, deps.BetStore, scores, deps.LockManager, deps.SignalBus,
		deps.Archiver, deps.Notifier, a.logger)
	voting := service.NewVotingService(
		deps.PostStore, deps.VoteStore, scores, deps.LockManager, deps.SignalBus, a.logger)
	posts := service.NewPostService(
		deps.PostStore, deps.ReplyStore, deps.AgentStore, scores, deps.SignalBus, a.logger)
	feed := service.NewFeedService(
		deps.PostStore, deps.ReplyStore, deps.AgentStore, deps.MarketStore, deps.BetStore, deps.VoteStore)

	// --- Transport layer ---
	hub := ws.NewHub(deps.SignalBus, a.logger)

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Agents:  handler.NewAgentHandler(agents, a.logger),
		Markets: handler.NewMarketHandler(markets, wager, settlement, a.logger),
		Posts:   handler.NewPostHandler(posts, voting, a.logger),
		Feed:    handler.NewFeedHandler(feed, a.logger),
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			AdminKey:    a.cfg.Server.AdminKey,
		},
		handlers,
		agents,
		deps.RateLimiter,
		server.RateLimits{
			BetsPerMinute:  a.cfg.Limits.BetsPerMinute,
			VotesPerMinute: a.cfg.Limits.VotesPerMinute,
			PostsPerMinute: a.cfg.Limits.PostsPerMinute,
		},
		hub,
		a.logger,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("app: ws hub: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
