package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clawarena/arena/internal/domain"
)

// WagerService is the wager ledger: it places bets and keeps the market
// pool totals consistent with the set of recorded bets. Duplicate
// prevention rides on the bet store's conditional-unique-create rather
// than a check-then-insert, so two concurrent first bets by the same
// agent can never both land.
type WagerService struct {
	markets domain.MarketStore
	bets    domain.BetStore
	agents  domain.AgentStore
	bus     domain.SignalBus
	logger  *slog.Logger
}

// NewWagerService creates a WagerService with all required dependencies.
func NewWagerService(
	markets domain.MarketStore,
	bets domain.BetStore,
	agents domain.AgentStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *WagerService {
	return &WagerService{
		markets: markets,
		bets:    bets,
		agents:  agents,
		bus:     bus,
		logger:  logger,
	}
}

// PlaceBet stakes amount on position for the given agent. At most one
// bet per (market, agent) pair is ever recorded.
//
// A bet that loses the race against resolution — insert succeeded but
// the market left the open state before the pool increment — is
// compensated away and reported as ErrConcurrencyConflict, leaving no
// partial state.
func (s *WagerService) PlaceBet(ctx context.Context, marketID, agentID string, position domain.BetPosition, amount int) (domain.Bet, error) {
	if amount < domain.MinBetAmount || amount > domain.MaxBetAmount {
		return domain.Bet{}, fmt.Errorf("wager: amount %d out of [%d,%d]: %w",
			amount, domain.MinBetAmount, domain.MaxBetAmount, domain.ErrInvalidAmount)
	}
	if position != domain.BetPositionYes && position != domain.BetPositionNo {
		return domain.Bet{}, fmt.Errorf("wager: position %q: %w", position, domain.ErrInvalidPosition)
	}

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("wager: market %s: %w", marketID, err)
	}
	if m.Status.Terminal() {
		return domain.Bet{}, fmt.Errorf("wager: market %s is %s: %w", marketID, m.Status, domain.ErrMarketClosed)
	}
	if m.ClosesAt != nil && time.Now().After(*m.ClosesAt) {
		return domain.Bet{}, fmt.Errorf("wager: market %s past deadline: %w", marketID, domain.ErrMarketClosed)
	}
	if m.OwnerID == agentID {
		return domain.Bet{}, fmt.Errorf("wager: market %s: %w", marketID, domain.ErrSelfDealing)
	}

	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("wager: agent %s: %w", agentID, err)
	}

	b := domain.Bet{
		ID:        uuid.New().String(),
		MarketID:  marketID,
		AgentID:   agentID,
		AgentName: agent.Name,
		Position:  position,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.bets.CreateUnique(ctx, b); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Bet{}, fmt.Errorf("wager: market %s agent %s: %w", marketID, agentID, domain.ErrDuplicateBet)
		}
		return domain.Bet{}, fmt.Errorf("wager: create bet: %w", err)
	}

	// The pool increment is guarded by status = open. A miss means the
	// market resolved between the insert above and now; the bet must not
	// survive, or settlement would have skipped it.
	if err := s.markets.ApplyBetPools(ctx, marketID, position, amount); err != nil {
		if delErr := s.bets.Delete(ctx, b.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "wager: compensating delete failed",
				slog.String("bet_id", b.ID),
				slog.String("market_id", marketID),
				slog.String("error", delErr.Error()),
			)
		}
		return domain.Bet{}, fmt.Errorf("wager: apply pools for market %s: %w", marketID, err)
	}

	s.logger.InfoContext(ctx, "wager: bet placed",
		slog.String("bet_id", b.ID),
		slog.String("market_id", marketID),
		slog.String("agent", agent.Name),
		slog.String("position", string(position)),
		slog.Int("amount", amount),
	)

	publish(ctx, s.bus, s.logger, ChannelBets, BetEvent{
		MarketID:  marketID,
		AgentName: agent.Name,
		Position:  string(position),
		Amount:    amount,
		PlacedAt:  b.CreatedAt,
	})

	return b, nil
}

// ListBets returns all bets on a market, most recent first.
func (s *WagerService) ListBets(ctx context.Context, marketID string) ([]domain.Bet, error) {
	bets, err := s.bets.ListByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("wager: list bets for market %s: %w", marketID, err)
	}
	return bets, nil
}
