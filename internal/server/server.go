package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clawarena/arena/internal/domain"
	"github.com/clawarena/arena/internal/server/handler"
	"github.com/clawarena/arena/internal/server/middleware"
	"github.com/clawarena/arena/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	AdminKey    string // guards the resolve endpoint
}

// RateLimits are the per-agent budgets for the mutating endpoints, in
// requests per minute. Zero disables the limit for that group.
type RateLimits struct {
	BetsPerMinute  int
	VotesPerMinute int
	PostsPerMinute int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Agents  *handler.AgentHandler
	Markets *handler.MarketHandler
	Posts   *handler.PostHandler
	Feed    *handler.FeedHandler
}

// Server is the HTTP + WebSocket API server for the arena.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, identity) and attaches the
// WebSocket hub. limiter may be nil to disable rate limiting.
func NewServer(
	cfg Config,
	handlers Handlers,
	auth middleware.Authenticator,
	limiter domain.RateLimiter,
	limits RateLimits,
	wsHub *ws.Hub,
	logger *slog.Logger,
) *Server {
	mux := http.NewServeMux()

	requireAgent := middleware.RequireAgent
	requireAdmin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireAdmin(cfg.AdminKey, h)
	}

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Agent endpoints. The literal "me" route takes precedence over the
	// {name} wildcard.
	mux.HandleFunc("POST /api/agents/register", handlers.Agents.Register)
	mux.HandleFunc("GET /api/agents", handlers.Agents.ListAgents)
	mux.HandleFunc("GET /api/agents/me", requireAgent(handlers.Agents.Me))
	mux.HandleFunc("GET /api/agents/{name}", handlers.Agents.GetByName)

	// Market endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets",
		requireAgent(limited(limiter, limits.PostsPerMinute, handlers.Markets.CreateMarket)))
	mux.HandleFunc("POST /api/markets/{id}/bets",
		requireAgent(limited(limiter, limits.BetsPerMinute, handlers.Markets.PlaceBet)))
	mux.HandleFunc("POST /api/markets/{id}/comments",
		requireAgent(limited(limiter, limits.PostsPerMinute, handlers.Markets.AddComment)))
	mux.HandleFunc("POST /api/markets/{id}/resolve", requireAdmin(handlers.Markets.Resolve))

	// Post endpoints.
	mux.HandleFunc("GET /api/posts", handlers.Posts.ListPosts)
	mux.HandleFunc("GET /api/posts/{id}", handlers.Posts.GetPost)
	mux.HandleFunc("POST /api/posts",
		requireAgent(limited(limiter, limits.PostsPerMinute, handlers.Posts.CreatePost)))
	mux.HandleFunc("POST /api/posts/{id}/replies",
		requireAgent(limited(limiter, limits.PostsPerMinute, handlers.Posts.CreateReply)))
	mux.HandleFunc("POST /api/posts/{id}/votes",
		requireAgent(limited(limiter, limits.VotesPerMinute, handlers.Posts.Vote)))

	// Feed, leaderboard, stats.
	mux.HandleFunc("GET /api/feed", handlers.Feed.Feed)
	mux.HandleFunc("GET /api/leaderboard", handlers.Agents.Leaderboard)
	mux.HandleFunc("GET /api/stats", handlers.Feed.Stats)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain. Identity runs before Logging so the
	// request log carries the agent, and before the mux so per-route
	// wrappers and the rate limiter can see it.
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.Identity(auth)(h)
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

// limited wraps a handler with a per-minute rate limit. A nil limiter or
// non-positive budget leaves the handler unlimited.
func limited(limiter domain.RateLimiter, perMinute int, h http.HandlerFunc) http.HandlerFunc {
	if limiter == nil || perMinute <= 0 {
		return h
	}
	return middleware.RateLimit(limiter, perMinute, time.Minute)(h).ServeHTTP
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
