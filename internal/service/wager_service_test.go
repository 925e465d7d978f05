package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clawarena/arena/internal/domain"
)

func TestPlaceBetUpdatesPools(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	bettor := f.seedAgent(t, "bettor")
	m := f.seedMarket(t, owner, "Will it rain?")

	b, err := f.wager.PlaceBet(context.Background(), m.ID, bettor.ID, domain.BetPositionYes, 25)
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if b.AgentName != "bettor" || b.Amount != 25 || b.Settled {
		t.Fatalf("unexpected bet: %+v", b)
	}

	got := f.market(t, m.ID)
	want := domain.PoolTotals{YesCount: 1, YesAmount: 25}
	if got.Pools != want {
		t.Fatalf("pools = %+v, want %+v", got.Pools, want)
	}
}

func TestPlaceBetValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	bettor := f.seedAgent(t, "bettor")
	m := f.seedMarket(t, owner, "Will it rain?")

	tests := []struct {
		name     string
		marketID string
		agentID  string
		position domain.BetPosition
		amount   int
		wantErr  error
	}{
		{"amount too low", m.ID, bettor.ID, domain.BetPositionYes, 0, domain.ErrInvalidAmount},
		{"amount too high", m.ID, bettor.ID, domain.BetPositionYes, 101, domain.ErrInvalidAmount},
		{"bad position", m.ID, bettor.ID, domain.BetPosition("maybe"), 10, domain.ErrInvalidPosition},
		{"unknown market", "missing", bettor.ID, domain.BetPositionYes, 10, domain.ErrNotFound},
		{"self dealing", m.ID, owner.ID, domain.BetPositionYes, 10, domain.ErrSelfDealing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.wager.PlaceBet(context.Background(), tt.marketID, tt.agentID, tt.position, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// No partial state from any rejected bet.
	if got := f.market(t, m.ID).Pools; got != (domain.PoolTotals{}) {
		t.Fatalf("pools mutated by rejected bets: %+v", got)
	}
}

func TestPlaceBetClosedMarket(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	bettor := f.seedAgent(t, "bettor")

	m := f.seedMarket(t, owner, "Resolved already?")
	err := f.store.Markets.BeginResolution(context.Background(), m.ID, domain.MarketStatusResolvedYes, "done", time.Now())
	if err != nil {
		t.Fatalf("BeginResolution: %v", err)
	}

	if _, err := f.wager.PlaceBet(context.Background(), m.ID, bettor.ID, domain.BetPositionYes, 10); !errors.Is(err, domain.ErrMarketClosed) {
		t.Fatalf("err = %v, want ErrMarketClosed", err)
	}
}

func TestPlaceBetPastDeadline(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	bettor := f.seedAgent(t, "bettor")

	past := time.Now().Add(-time.Hour)
	m := domain.Market{
		ID:        "m-deadline",
		OwnerID:   owner.ID,
		OwnerName: owner.Name,
		Question:  "Too late?",
		Status:    domain.MarketStatusOpen,
		ClosesAt:  &past,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.store.Markets.Create(context.Background(), m); err != nil {
		t.Fatalf("create market: %v", err)
	}

	if _, err := f.wager.PlaceBet(context.Background(), m.ID, bettor.ID, domain.BetPositionNo, 10); !errors.Is(err, domain.ErrMarketClosed) {
		t.Fatalf("err = %v, want ErrMarketClosed", err)
	}
}

func TestPlaceBetDuplicate(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	bettor := f.seedAgent(t, "bettor")
	m := f.seedMarket(t, owner, "Will it rain?")

	if _, err := f.wager.PlaceBet(context.Background(), m.ID, bettor.ID, domain.BetPositionYes, 10); err != nil {
		t.Fatalf("first bet: %v", err)
	}
	// Same agent again, even on the other side.
	if _, err := f.wager.PlaceBet(context.Background(), m.ID, bettor.ID, domain.BetPositionNo, 20); !errors.Is(err, domain.ErrDuplicateBet) {
		t.Fatalf("err = %v, want ErrDuplicateBet", err)
	}

	got := f.market(t, m.ID)
	want := domain.PoolTotals{YesCount: 1, YesAmount: 10}
	if got.Pools != want {
		t.Fatalf("pools = %+v, want %+v", got.Pools, want)
	}
}

// resolveBetweenStore flips the market to a terminal status after the
// bet insert but before the pool increment, reproducing a bet losing
// the race against resolution.
type resolveBetweenStore struct {
	domain.MarketStore
	flip func()
}

func (s *resolveBetweenStore) ApplyBetPools(ctx context.Context, id string, position domain.BetPosition, amount int) error {
	s.flip()
	return s.MarketStore.ApplyBetPools(ctx, id, position, amount)
}

func TestPlaceBetCompensatesLostRace(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	bettor := f.seedAgent(t, "bettor")
	m := f.seedMarket(t, owner, "Raced?")

	raced := &resolveBetweenStore{
		MarketStore: f.store.Markets,
		flip: func() {
			err := f.store.Markets.BeginResolution(context.Background(), m.ID, domain.MarketStatusResolvedNo, "raced", time.Now())
			if err != nil {
				t.Fatalf("flip: %v", err)
			}
		},
	}
	wager := newWagerWithMarkets(f, raced)

	_, err := wager.PlaceBet(context.Background(), m.ID, bettor.ID, domain.BetPositionYes, 10)
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("err = %v, want ErrConcurrencyConflict", err)
	}

	// The losing bet must not survive; settlement never saw it.
	bets, err := f.store.Bets.ListByMarket(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("list bets: %v", err)
	}
	if len(bets) != 0 {
		t.Fatalf("bet survived a lost race: %+v", bets)
	}
	if got := f.market(t, m.ID).Pools; got != (domain.PoolTotals{}) {
		t.Fatalf("pools mutated by lost race: %+v", got)
	}
}
