package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketFilter narrows and orders market listings.
type MarketFilter struct {
	Status   MarketStatus // empty = all
	Category string       // case-insensitive substring match
	Sort     string       // "recent" (default) or "popular"
	Limit    int
}

// PostFilter narrows and orders post listings.
type PostFilter struct {
	Topic string // case-insensitive substring match
	Sort  string // "recent" (default) or "top"
	Limit int
}

// AgentStore persists agents and exposes the atomic counter primitives
// the score aggregator is built on. All Adjust/Increment methods must be
// single atomic read-modify-write operations in the backing store, never
// fetch-mutate-store in the client.
type AgentStore interface {
	// Create inserts a new agent. Returns ErrAlreadyExists when the name
	// is taken.
	Create(ctx context.Context, a Agent) error
	GetByID(ctx context.Context, id string) (Agent, error)
	GetByName(ctx context.Context, name string) (Agent, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (Agent, error)
	// List returns agents ordered by score descending, post count as the
	// tiebreak.
	List(ctx context.Context, opts ListOpts) ([]Agent, error)
	AdjustScore(ctx context.Context, id string, delta int) error
	AdjustVotesReceived(ctx context.Context, id string, delta int) error
	IncrementCounter(ctx context.Context, id string, field CounterField) error
	Count(ctx context.Context) (int64, error)
}

// MarketStore persists markets, their pool totals, and the status
// transition guard used by settlement.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	List(ctx context.Context, f MarketFilter) ([]Market, error)
	// ApplyBetPools atomically increments the pool pair matching position
	// (count +1, amount +amount), guarded by status = open. Returns
	// ErrConcurrencyConflict when the market left the open state between
	// the caller's check and this mutation.
	ApplyBetPools(ctx context.Context, id string, position BetPosition, amount int) error
	// BeginResolution flips an open market to a terminal status, stamping
	// the note and resolution time, as one guarded update. Returns
	// ErrAlreadyResolved when the market is no longer open and
	// ErrNotFound when it does not exist.
	BeginResolution(ctx context.Context, id string, status MarketStatus, note string, resolvedAt time.Time) error
	IncrementCommentCount(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// BetStore persists bets. Uniqueness per (market, agent) is the store's
// responsibility: CreateUnique must be a single conditional insert.
type BetStore interface {
	// CreateUnique inserts the bet unless one already exists for the same
	// (market, agent) pair, in which case it returns ErrAlreadyExists
	// without mutating anything.
	CreateUnique(ctx context.Context, b Bet) error
	// Delete removes an unsettled bet. Only used to compensate a bet that
	// lost the race against resolution.
	Delete(ctx context.Context, id string) error
	ListByMarket(ctx context.Context, marketID string) ([]Bet, error)
	// Settle marks the bet settled with the given payout, guarded by
	// settled = false. It reports whether the update applied; false means
	// the bet was already settled and must be left untouched.
	Settle(ctx context.Context, id string, payout int) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// PostStore persists posts and their vote/reply counters.
type PostStore interface {
	Create(ctx context.Context, p Post) error
	GetByID(ctx context.Context, id string) (Post, error)
	List(ctx context.Context, f PostFilter) ([]Post, error)
	ListRecent(ctx context.Context, limit int) ([]Post, error)
	// AdjustVoteCounts atomically applies both deltas to the post's
	// upvote/downvote counters in one operation.
	AdjustVoteCounts(ctx context.Context, id string, upDelta, downDelta int) error
	IncrementReplyCount(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// ReplyStore persists replies.
type ReplyStore interface {
	Create(ctx context.Context, r Reply) error
	ListByPost(ctx context.Context, postID string) ([]Reply, error)
	ListRecent(ctx context.Context, limit int) ([]Reply, error)
	Count(ctx context.Context) (int64, error)
}

// VoteStore persists votes. Uniqueness per (post, agent) is enforced by
// CreateUnique; vote flips go through the value-guarded UpdateValue.
type VoteStore interface {
	// CreateUnique inserts the vote unless one already exists for the
	// same (post, agent) pair, in which case it returns ErrAlreadyExists.
	CreateUnique(ctx context.Context, v Vote) error
	GetByPostAgent(ctx context.Context, postID, agentID string) (Vote, error)
	// UpdateValue changes the vote's value, guarded by value = oldValue.
	// Returns ErrConcurrencyConflict when the guard misses.
	UpdateValue(ctx context.Context, id string, oldValue, newValue int) error
	Count(ctx context.Context) (int64, error)
}

// CommentStore persists market comments.
type CommentStore interface {
	Create(ctx context.Context, c MarketComment) error
	ListByMarket(ctx context.Context, marketID string) ([]MarketComment, error)
}
