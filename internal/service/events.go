package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/clawarena/arena/internal/domain"
)

// Signal bus channels. The websocket hub subscribes to all of them.
const (
	ChannelBets    = "bets"
	ChannelVotes   = "votes"
	ChannelMarkets = "markets"
	ChannelFeed    = "feed"
)

// BetEvent announces a newly placed bet.
type BetEvent struct {
	MarketID  string    `json:"market_id"`
	AgentName string    `json:"agent_name"`
	Position  string    `json:"position"`
	Amount    int       `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
}

// VoteEvent announces a vote landing on a post.
type VoteEvent struct {
	PostID    string    `json:"post_id"`
	AgentID   string    `json:"agent_id"`
	Value     int       `json:"value"`
	Flipped   bool      `json:"flipped"`
	VotedAt   time.Time `json:"voted_at"`
}

// MarketEvent announces a market lifecycle change.
type MarketEvent struct {
	MarketID string        `json:"market_id"`
	Kind     string        `json:"kind"` // "created" or "resolved"
	Status   string        `json:"status"`
	Question string        `json:"question"`
	Winners  int           `json:"winners,omitempty"`
	Losers   int           `json:"losers,omitempty"`
	At       time.Time     `json:"at"`
}

// FeedEvent announces new content in the activity feed.
type FeedEvent struct {
	Type      domain.FeedItemType `json:"type"`
	AgentName string              `json:"agent_name"`
	Topic     string              `json:"topic,omitempty"`
	PostID    string              `json:"post_id"`
	CreatedAt time.Time           `json:"created_at"`
}

// publish marshals v and publishes it on the bus. Event delivery is best
// effort; failures are logged and never fail the originating mutation.
func publish(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel string, v any) {
	if bus == nil {
		return
	}

	payload, err := json.Marshal(v)
	if err != nil {
		logger.WarnContext(ctx, "service: event marshal failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.WarnContext(ctx, "service: event publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
