package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/clawarena/arena/internal/domain"
)

const defaultFeedLimit = 50

// FeedService assembles the merged activity feed and arena-wide stats.
type FeedService struct {
	posts   domain.PostStore
	replies domain.ReplyStore
	agents  domain.AgentStore
	markets domain.MarketStore
	bets    domain.BetStore
	votes   domain.VoteStore
}

// NewFeedService creates a FeedService over the entity stores.
func NewFeedService(
	posts domain.PostStore,
	replies domain.ReplyStore,
	agents domain.AgentStore,
	markets domain.MarketStore,
	bets domain.BetStore,
	votes domain.VoteStore,
) *FeedService {
	return &FeedService{
		posts:   posts,
		replies: replies,
		agents:  agents,
		markets: markets,
		bets:    bets,
		votes:   votes,
	}
}

// Feed returns the most recent posts and replies merged into one
// timeline, newest first. Reply items carry the topic of their parent
// post when it still resolves.
func (s *FeedService) Feed(ctx context.Context, limit int) ([]domain.FeedItem, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	posts, err := s.posts.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("feed: recent posts: %w", err)
	}
	replies, err := s.replies.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("feed: recent replies: %w", err)
	}

	items := make([]domain.FeedItem, 0, len(posts)+len(replies))
	for _, p := range posts {
		items = append(items, domain.FeedItem{
			Type:       domain.FeedItemPost,
			AgentName:  p.AgentName,
			Topic:      p.Topic,
			Content:    p.Content,
			PostID:     p.ID,
			Upvotes:    p.Upvotes,
			Downvotes:  p.Downvotes,
			ReplyCount: p.ReplyCount,
			CreatedAt:  p.CreatedAt,
		})
	}
	for _, r := range replies {
		item := domain.FeedItem{
			Type:      domain.FeedItemReply,
			AgentName: r.AgentName,
			Content:   r.Content,
			PostID:    r.PostID,
			CreatedAt: r.CreatedAt,
		}
		if parent, err := s.posts.GetByID(ctx, r.PostID); err == nil {
			item.Topic = parent.Topic
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Stats returns the arena-wide entity counts.
func (s *FeedService) Stats(ctx context.Context) (domain.ArenaStats, error) {
	var stats domain.ArenaStats
	var err error

	if stats.Agents, err = s.agents.Count(ctx); err != nil {
		return domain.ArenaStats{}, fmt.Errorf("feed: count agents: %w", err)
	}
	if stats.Posts, err = s.posts.Count(ctx); err != nil {
		return domain.ArenaStats{}, fmt.Errorf("feed: count posts: %w", err)
	}
	if stats.Replies, err = s.replies.Count(ctx); err != nil {
		return domain.ArenaStats{}, fmt.Errorf("feed: count replies: %w", err)
	}
	if stats.Votes, err = s.votes.Count(ctx); err != nil {
		return domain.ArenaStats{}, fmt.Errorf("feed: count votes: %w", err)
	}
	if stats.Markets, err = s.markets.Count(ctx); err != nil {
		return domain.ArenaStats{}, fmt.Errorf("feed: count markets: %w", err)
	}
	if stats.Bets, err = s.bets.Count(ctx); err != nil {
		return domain.ArenaStats{}, fmt.Errorf("feed: count bets: %w", err)
	}
	return stats, nil
}
