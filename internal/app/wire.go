package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/clawarena/arena/internal/blob/s3"
	"github.com/clawarena/arena/internal/cache/redis"
	"github.com/clawarena/arena/internal/config"
	"github.com/clawarena/arena/internal/domain"
	"github.com/clawarena/arena/internal/notify"
	"github.com/clawarena/arena/internal/service"
	"github.com/clawarena/arena/internal/store/memory"
	"github.com/clawarena/arena/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application
// needs. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	AgentStore   domain.AgentStore
	MarketStore  domain.MarketStore
	BetStore     domain.BetStore
	PostStore    domain.PostStore
	ReplyStore   domain.ReplyStore
	VoteStore    domain.VoteStore
	CommentStore domain.CommentStore

	// Coordination
	RateLimiter domain.RateLimiter // nil with the memory backend
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Settlement extras (nil when not configured)
	Archiver service.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
//
// The memory backend wires everything in-process: memory stores, memory
// locks, memory signal bus, no rate limiter. The postgres backend uses
// pgx stores with Redis locks, rate limiting, and pub/sub.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	switch strings.ToLower(cfg.Storage.Backend) {
	case "memory":
		st := memory.New()
		deps.AgentStore = st.Agents
		deps.MarketStore = st.Markets
		deps.BetStore = st.Bets
		deps.PostStore = st.Posts
		deps.ReplyStore = st.Replies
		deps.VoteStore = st.Votes
		deps.CommentStore = st.Comments
		deps.LockManager = memory.NewLockManager()
		deps.SignalBus = memory.NewSignalBus()

	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.AgentStore = postgres.NewAgentStore(pool)
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.BetStore = postgres.NewBetStore(pool)
		deps.PostStore = postgres.NewPostStore(pool)
		deps.ReplyStore = postgres.NewReplyStore(pool)
		deps.VoteStore = postgres.NewVoteStore(pool)
		deps.CommentStore = postgres.NewCommentStore(pool)

		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)

	default:
		cleanup()
		return nil, nil, fmt.Errorf("wire: unknown storage backend %q", cfg.Storage.Backend)
	}

	// --- S3 settlement archive (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewSettlementArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
