package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clawarena/arena/internal/domain"
)

const (
	maxTopicLen       = 100
	maxPostContentLen = 2000
)

// PostService manages posts and replies and keeps the per-agent content
// counters moving through the score aggregator.
type PostService struct {
	posts   domain.PostStore
	replies domain.ReplyStore
	agents  domain.AgentStore
	scores  *ScoreAggregator
	bus     domain.SignalBus
	logger  *slog.Logger
}

// NewPostService creates a PostService with all required dependencies.
func NewPostService(
	posts domain.PostStore,
	replies domain.ReplyStore,
	agents domain.AgentStore,
	scores *ScoreAggregator,
	bus domain.SignalBus,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:   posts,
		replies: replies,
		agents:  agents,
		scores:  scores,
		bus:     bus,
		logger:  logger,
	}
}

// CreatePost publishes a new post and bumps the author's post counter.
func (s *PostService) CreatePost(ctx context.Context, agentID, topic, content string) (domain.Post, error) {
	topic = strings.TrimSpace(topic)
	content = strings.TrimSpace(content)
	if topic == "" || len(topic) > maxTopicLen {
		return domain.Post{}, fmt.Errorf("post: topic must be 1-%d characters: %w", maxTopicLen, domain.ErrInvalidInput)
	}
	if content == "" || len(content) > maxPostContentLen {
		return domain.Post{}, fmt.Errorf("post: content must be 1-%d characters: %w", maxPostContentLen, domain.ErrInvalidInput)
	}

	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return domain.Post{}, fmt.Errorf("post: agent %s: %w", agentID, err)
	}

	p := domain.Post{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		AgentName: agent.Name,
		Topic:     topic,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return domain.Post{}, fmt.Errorf("post: create: %w", err)
	}
	if err := s.scores.RecordPost(ctx, agentID); err != nil {
		return domain.Post{}, err
	}

	publish(ctx, s.bus, s.logger, ChannelFeed, FeedEvent{
		Type:      domain.FeedItemPost,
		AgentName: agent.Name,
		Topic:     topic,
		PostID:    p.ID,
		CreatedAt: p.CreatedAt,
	})

	return p, nil
}

// GetPost returns a post together with its replies, oldest reply first.
func (s *PostService) GetPost(ctx context.Context, id string) (domain.Post, []domain.Reply, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return domain.Post{}, nil, fmt.Errorf("post: get %s: %w", id, err)
	}
	replies, err := s.replies.ListByPost(ctx, id)
	if err != nil {
		return domain.Post{}, nil, fmt.Errorf("post: list replies for %s: %w", id, err)
	}
	return p, replies, nil
}

// ListPosts returns posts matching the filter.
func (s *PostService) ListPosts(ctx context.Context, f domain.PostFilter) ([]domain.Post, error) {
	posts, err := s.posts.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("post: list: %w", err)
	}
	return posts, nil
}

// CreateReply attaches a reply to a post and bumps the reply counters on
// both the post and the author.
func (s *PostService) CreateReply(ctx context.Context, postID, agentID, content string) (domain.Reply, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxPostContentLen {
		return domain.Reply{}, fmt.Errorf("post: reply content must be 1-%d characters: %w", maxPostContentLen, domain.ErrInvalidInput)
	}

	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return domain.Reply{}, fmt.Errorf("post: get %s: %w", postID, err)
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("post: agent %s: %w", agentID, err)
	}

	r := domain.Reply{
		ID:        uuid.New().String(),
		PostID:    postID,
		AgentID:   agentID,
		AgentName: agent.Name,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.replies.Create(ctx, r); err != nil {
		return domain.Reply{}, fmt.Errorf("post: create reply: %w", err)
	}
	if err := s.posts.IncrementReplyCount(ctx, postID); err != nil {
		return domain.Reply{}, fmt.Errorf("post: bump reply count for %s: %w", postID, err)
	}
	if err := s.scores.RecordReply(ctx, agentID); err != nil {
		return domain.Reply{}, err
	}

	publish(ctx, s.bus, s.logger, ChannelFeed, FeedEvent{
		Type:      domain.FeedItemReply,
		AgentName: agent.Name,
		PostID:    postID,
		CreatedAt: r.CreatedAt,
	})

	return r, nil
}
