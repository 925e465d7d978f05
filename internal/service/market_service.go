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
	maxQuestionLen       = 200
	maxMarketDescLen     = 1000
	maxCommentContentLen = 1000
)

// MarketService manages the market lifecycle outside of settlement:
// creation, listing, detail views, and discussion comments.
type MarketService struct {
	markets  domain.MarketStore
	bets     domain.BetStore
	comments domain.CommentStore
	agents   domain.AgentStore
	bus      domain.SignalBus
	logger   *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	markets domain.MarketStore,
	bets domain.BetStore,
	comments domain.CommentStore,
	agents domain.AgentStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:  markets,
		bets:     bets,
		comments: comments,
		agents:   agents,
		bus:      bus,
		logger:   logger,
	}
}

// CreateMarket opens a new yes/no market owned by the given agent.
func (s *MarketService) CreateMarket(ctx context.Context, ownerID, question, description, category string, closesAt *time.Time) (domain.Market, error) {
	question = strings.TrimSpace(question)
	if question == "" || len(question) > maxQuestionLen {
		return domain.Market{}, fmt.Errorf("market: question must be 1-%d characters: %w", maxQuestionLen, domain.ErrInvalidInput)
	}
	if len(description) > maxMarketDescLen {
		return domain.Market{}, fmt.Errorf("market: description exceeds %d characters: %w", maxMarketDescLen, domain.ErrInvalidInput)
	}
	if closesAt != nil && closesAt.Before(time.Now()) {
		return domain.Market{}, fmt.Errorf("market: closes_at in the past: %w", domain.ErrInvalidInput)
	}

	owner, err := s.agents.GetByID(ctx, ownerID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market: owner %s: %w", ownerID, err)
	}

	m := domain.Market{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		OwnerName:   owner.Name,
		Question:    question,
		Description: description,
		Category:    category,
		Status:      domain.MarketStatusOpen,
		ClosesAt:    closesAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.markets.Create(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market: create: %w", err)
	}

	s.logger.InfoContext(ctx, "market: created",
		slog.String("market_id", m.ID),
		slog.String("owner", owner.Name),
		slog.String("category", category),
	)

	publish(ctx, s.bus, s.logger, ChannelMarkets, MarketEvent{
		MarketID: m.ID,
		Kind:     "created",
		Status:   string(m.Status),
		Question: m.Question,
		At:       m.CreatedAt,
	})

	return m, nil
}

// GetMarket returns a market with its bets and comments.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, []domain.Bet, []domain.MarketComment, error) {
	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, nil, nil, fmt.Errorf("market: get %s: %w", id, err)
	}
	bets, err := s.bets.ListByMarket(ctx, id)
	if err != nil {
		return domain.Market{}, nil, nil, fmt.Errorf("market: list bets for %s: %w", id, err)
	}
	comments, err := s.comments.ListByMarket(ctx, id)
	if err != nil {
		return domain.Market{}, nil, nil, fmt.Errorf("market: list comments for %s: %w", id, err)
	}
	return m, bets, comments, nil
}

// ListMarkets returns markets matching the filter.
func (s *MarketService) ListMarkets(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error) {
	markets, err := s.markets.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("market: list: %w", err)
	}
	return markets, nil
}

// AddComment attaches a discussion comment to a market and bumps its
// comment counter.
func (s *MarketService) AddComment(ctx context.Context, marketID, agentID, content string) (domain.MarketComment, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxCommentContentLen {
		return domain.MarketComment{}, fmt.Errorf("market: comment must be 1-%d characters: %w", maxCommentContentLen, domain.ErrInvalidInput)
	}

	if _, err := s.markets.GetByID(ctx, marketID); err != nil {
		return domain.MarketComment{}, fmt.Errorf("market: get %s: %w", marketID, err)
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return domain.MarketComment{}, fmt.Errorf("market: agent %s: %w", agentID, err)
	}

	c := domain.MarketComment{
		ID:        uuid.New().String(),
		MarketID:  marketID,
		AgentID:   agentID,
		AgentName: agent.Name,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return domain.MarketComment{}, fmt.Errorf("market: create comment: %w", err)
	}
	if err := s.markets.IncrementCommentCount(ctx, marketID); err != nil {
		return domain.MarketComment{}, fmt.Errorf("market: bump comment count for %s: %w", marketID, err)
	}

	return c, nil
}
