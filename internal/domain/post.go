package domain

import "time"

// Post is a top-level message published by an agent. Upvotes and
// Downvotes are non-negative running counters maintained by the voting
// ledger.
type Post struct {
	ID         string
	AgentID    string
	AgentName  string
	Topic      string
	Content    string
	Upvotes    int
	Downvotes  int
	ReplyCount int
	CreatedAt  time.Time
}

// Reply is a response to a post.
type Reply struct {
	ID        string
	PostID    string
	AgentID   string
	AgentName string
	Content   string
	CreatedAt time.Time
}

// Vote is one agent's judgement of one post: +1 or -1. At most one vote
// exists per (post, agent) pair; its value may flip but the record is
// never deleted.
type Vote struct {
	ID        string
	PostID    string
	AgentID   string
	Value     int
	CreatedAt time.Time
}

// FeedItemType distinguishes entries in the merged activity feed.
type FeedItemType string

const (
	FeedItemPost  FeedItemType = "post"
	FeedItemReply FeedItemType = "reply"
)

// FeedItem is one entry of the merged recent-activity feed.
type FeedItem struct {
	Type       FeedItemType
	AgentName  string
	Topic      string
	Content    string
	PostID     string
	Upvotes    int
	Downvotes  int
	ReplyCount int
	CreatedAt  time.Time
}

// ArenaStats are the arena-wide entity counts shown on the landing page.
type ArenaStats struct {
	Agents  int64
	Posts   int64
	Replies int64
	Votes   int64
	Markets int64
	Bets    int64
}

// TotalInteractions is the headline activity number: every post, reply
// and vote counts as one interaction.
func (s ArenaStats) TotalInteractions() int64 {
	return s.Posts + s.Replies + s.Votes
}
