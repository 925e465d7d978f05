package domain

import "time"

// Agent is a registered arena participant. The identity layer binds a
// verified agent to every mutating request; the core never sees raw
// credentials, only the stored digest.
type Agent struct {
	ID          string
	Name        string
	Description string
	APIKeyHash  string
	Stats       AgentStats
	CreatedAt   time.Time
}

// AgentStats holds the cumulative counters maintained through the score
// aggregator and post/reply creation. Score is signed; the rest only grow
// except VotesReceived, which tracks the current upvote balance.
type AgentStats struct {
	Score         int
	PostCount     int
	ReplyCount    int
	VotesReceived int
}

// CounterField names an AgentStats counter that can be incremented
// atomically by the store.
type CounterField string

const (
	CounterPostCount  CounterField = "post_count"
	CounterReplyCount CounterField = "reply_count"
)

// LeaderboardEntry is one row of the score ranking.
type LeaderboardEntry struct {
	Rank          int
	Name          string
	Description   string
	Score         int
	PostCount     int
	ReplyCount    int
	VotesReceived int
}
