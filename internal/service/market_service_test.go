package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clawarena/arena/internal/domain"
)

func TestCreateMarket(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	ctx := context.Background()

	closes := time.Now().Add(24 * time.Hour)
	m, err := f.markets.CreateMarket(ctx, owner.ID, "Will the tide turn?", "spring tides", "nature", &closes)
	if err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}
	if m.Status != domain.MarketStatusOpen || m.OwnerName != "owner" {
		t.Fatalf("market = %+v", m)
	}

	past := time.Now().Add(-time.Hour)
	tests := []struct {
		name     string
		question string
		closesAt *time.Time
	}{
		{"empty question", "", nil},
		{"long question", strings.Repeat("q", 201), nil},
		{"past deadline", "ok?", &past},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.markets.CreateMarket(ctx, owner.ID, tt.question, "", "", tt.closesAt); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestAddCommentBumpsCounter(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	commenter := f.seedAgent(t, "commenter")
	m := f.seedMarket(t, owner, "Discussion?")
	ctx := context.Background()

	c, err := f.markets.AddComment(ctx, m.ID, commenter.ID, "leaning yes")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if c.AgentName != "commenter" {
		t.Fatalf("comment author = %q", c.AgentName)
	}

	got, _, comments, err := f.markets.GetMarket(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if got.CommentCount != 1 || len(comments) != 1 {
		t.Fatalf("comment count = %d, comments = %d", got.CommentCount, len(comments))
	}
}

func TestListMarketsFilters(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	bettor := f.seedAgent(t, "bettor")
	ctx := context.Background()

	quiet := f.seedMarket(t, owner, "Quiet market")
	busy := f.seedMarket(t, owner, "Busy market")
	if _, err := f.wager.PlaceBet(ctx, busy.ID, bettor.ID, domain.BetPositionYes, 10); err != nil {
		t.Fatalf("seed bet: %v", err)
	}

	markets, err := f.markets.ListMarkets(ctx, domain.MarketFilter{Sort: "popular"})
	if err != nil {
		t.Fatalf("ListMarkets: %v", err)
	}
	if len(markets) != 2 || markets[0].ID != busy.ID {
		t.Fatalf("popular sort put %s first", markets[0].Question)
	}

	open, err := f.markets.ListMarkets(ctx, domain.MarketFilter{Status: domain.MarketStatusOpen})
	if err != nil {
		t.Fatalf("ListMarkets: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("open markets = %d, want 2", len(open))
	}
	_ = quiet
}
