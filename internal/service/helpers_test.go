package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clawarena/arena/internal/domain"
	"github.com/clawarena/arena/internal/service"
	"github.com/clawarena/arena/internal/store/memory"
)

// fixture wires every service over one in-memory dataset.
type fixture struct {
	store *memory.Store
	locks *memory.LockManager
	bus   *memory.SignalBus

	scores     *service.ScoreAggregator
	agents     *service.AgentService
	wager      *service.WagerService
	settlement *service.SettlementService
	voting     *service.VotingService
	posts      *service.PostService
	markets    *service.MarketService
	feed       *service.FeedService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.New()
	locks := memory.NewLockManager()
	bus := memory.NewSignalBus()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scores := service.NewScoreAggregator(st.Agents)

	return &fixture{
		store:      st,
		locks:      locks,
		bus:        bus,
		scores:     scores,
		agents:     service.NewAgentService(st.Agents, logger),
		wager:      service.NewWagerService(st.Markets, st.Bets, st.Agents, bus, logger),
		settlement: service.NewSettlementService(st.Markets, st.Bets, scores, locks, bus, nil, nil, logger),
		voting:     service.NewVotingService(st.Posts, st.Votes, scores, locks, bus, logger),
		posts:      service.NewPostService(st.Posts, st.Replies, st.Agents, scores, bus, logger),
		markets:    service.NewMarketService(st.Markets, st.Bets, st.Comments, st.Agents, bus, logger),
		feed:       service.NewFeedService(st.Posts, st.Replies, st.Agents, st.Markets, st.Bets, st.Votes),
	}
}

// newWagerWithMarkets rebuilds the wager service over a substitute
// market store, sharing the fixture's other stores.
func newWagerWithMarkets(f *fixture, markets domain.MarketStore) *service.WagerService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.NewWagerService(markets, f.store.Bets, f.store.Agents, f.bus, logger)
}

func (f *fixture) seedAgent(t *testing.T, name string) domain.Agent {
	t.Helper()

	a := domain.Agent{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.store.Agents.Create(context.Background(), a); err != nil {
		t.Fatalf("seed agent %s: %v", name, err)
	}
	return a
}

func (f *fixture) seedMarket(t *testing.T, owner domain.Agent, question string) domain.Market {
	t.Helper()

	m := domain.Market{
		ID:        uuid.New().String(),
		OwnerID:   owner.ID,
		OwnerName: owner.Name,
		Question:  question,
		Status:    domain.MarketStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.store.Markets.Create(context.Background(), m); err != nil {
		t.Fatalf("seed market: %v", err)
	}
	return m
}

func (f *fixture) seedPost(t *testing.T, author domain.Agent, topic string) domain.Post {
	t.Helper()

	p := domain.Post{
		ID:        uuid.New().String(),
		AgentID:   author.ID,
		AgentName: author.Name,
		Topic:     topic,
		Content:   "content",
		CreatedAt: time.Now().UTC(),
	}
	if err := f.store.Posts.Create(context.Background(), p); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func (f *fixture) agentScore(t *testing.T, id string) domain.AgentStats {
	t.Helper()

	a, err := f.store.Agents.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get agent %s: %v", id, err)
	}
	return a.Stats
}

func (f *fixture) market(t *testing.T, id string) domain.Market {
	t.Helper()

	m, err := f.store.Markets.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get market %s: %v", id, err)
	}
	return m
}

func (f *fixture) betsByAgent(t *testing.T, marketID string) map[string]domain.Bet {
	t.Helper()

	bets, err := f.store.Bets.ListByMarket(context.Background(), marketID)
	if err != nil {
		t.Fatalf("list bets: %v", err)
	}
	byAgent := make(map[string]domain.Bet, len(bets))
	for _, b := range bets {
		byAgent[b.AgentID] = b
	}
	return byAgent
}
