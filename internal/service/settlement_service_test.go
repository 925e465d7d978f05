package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/clawarena/arena/internal/domain"
	"github.com/clawarena/arena/internal/notify"
	"github.com/clawarena/arena/internal/service"
)

// seedThreeWayMarket places A yes 10, B yes 30, C no 20 through the
// wager ledger so the pools match the bets.
func seedThreeWayMarket(t *testing.T, f *fixture) (m domain.Market, a, b, c domain.Agent) {
	t.Helper()

	owner := f.seedAgent(t, "owner")
	a = f.seedAgent(t, "alpha")
	b = f.seedAgent(t, "beta")
	c = f.seedAgent(t, "gamma")
	m = f.seedMarket(t, owner, "Will the claw win?")

	ctx := context.Background()
	for _, bet := range []struct {
		agent    domain.Agent
		position domain.BetPosition
		amount   int
	}{
		{a, domain.BetPositionYes, 10},
		{b, domain.BetPositionYes, 30},
		{c, domain.BetPositionNo, 20},
	} {
		if _, err := f.wager.PlaceBet(ctx, m.ID, bet.agent.ID, bet.position, bet.amount); err != nil {
			t.Fatalf("seed bet for %s: %v", bet.agent.Name, err)
		}
	}
	return m, a, b, c
}

func TestResolveYesPariMutuel(t *testing.T) {
	f := newFixture(t)
	m, a, b, c := seedThreeWayMarket(t, f)

	summary, err := f.settlement.Resolve(context.Background(), m.ID, domain.OutcomeYes, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := domain.SettlementSummary{
		MarketID:      m.ID,
		Outcome:       domain.OutcomeYes,
		Winners:       2,
		Losers:        1,
		TotalWinPool:  40,
		TotalLosePool: 20,
	}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}

	got := f.market(t, m.ID)
	if got.Status != domain.MarketStatusResolvedYes {
		t.Fatalf("status = %s, want resolved_yes", got.Status)
	}
	if got.ResolutionNote != "Resolved as YES" {
		t.Fatalf("note = %q", got.ResolutionNote)
	}
	if got.ResolvedAt == nil {
		t.Fatal("resolved_at not stamped")
	}

	// Winner payout is stake plus round(amount/winPool*losePool).
	bets := f.betsByAgent(t, m.ID)
	for _, tc := range []struct {
		agent  domain.Agent
		payout int
		score  int
	}{
		{a, 15, 5},   // 10 + round(10/40*20)
		{b, 45, 15},  // 30 + round(30/40*20)
		{c, 0, -20},  // stake forfeited
	} {
		bet := bets[tc.agent.ID]
		if !bet.Settled || bet.Payout != tc.payout {
			t.Errorf("%s: bet = %+v, want settled payout %d", tc.agent.Name, bet, tc.payout)
		}
		if stats := f.agentScore(t, tc.agent.ID); stats.Score != tc.score {
			t.Errorf("%s: score = %d, want %d", tc.agent.Name, stats.Score, tc.score)
		}
	}
}

// Each winner's profit rounds independently, so the disbursed total can
// drift away from the lose pool. Three winners at 1 against a loser at
// 10 each take round(1/3*10) = 3, paying out 9 of the 10 at stake. The
// missing unit stays unreconciled on purpose.
func TestResolveRoundingDriftUnreconciled(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	winners := []domain.Agent{
		f.seedAgent(t, "alpha"),
		f.seedAgent(t, "beta"),
		f.seedAgent(t, "gamma"),
	}
	loser := f.seedAgent(t, "delta")
	m := f.seedMarket(t, owner, "Thirds never divide")
	ctx := context.Background()

	for _, w := range winners {
		if _, err := f.wager.PlaceBet(ctx, m.ID, w.ID, domain.BetPositionYes, 1); err != nil {
			t.Fatalf("seed bet for %s: %v", w.Name, err)
		}
	}
	if _, err := f.wager.PlaceBet(ctx, m.ID, loser.ID, domain.BetPositionNo, 10); err != nil {
		t.Fatalf("seed losing bet: %v", err)
	}

	summary, err := f.settlement.Resolve(ctx, m.ID, domain.OutcomeYes, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if summary.TotalWinPool != 3 || summary.TotalLosePool != 10 {
		t.Fatalf("pools = %d/%d", summary.TotalWinPool, summary.TotalLosePool)
	}

	bets := f.betsByAgent(t, m.ID)
	disbursed := 0
	for _, w := range winners {
		bet := bets[w.ID]
		if bet.Payout != 4 {
			t.Errorf("%s: payout = %d, want 1 + round(1/3*10) = 4", w.Name, bet.Payout)
		}
		if stats := f.agentScore(t, w.ID); stats.Score != 3 {
			t.Errorf("%s: score = %d, want 3", w.Name, stats.Score)
		}
		disbursed += bet.Payout - bet.Amount
	}

	// 3+3+3 = 9 credited against 10 debited: the drift is kept, not
	// redistributed.
	if disbursed != 9 {
		t.Fatalf("disbursed profit = %d, want 9", disbursed)
	}
	if stats := f.agentScore(t, loser.ID); stats.Score != -10 {
		t.Fatalf("loser score = %d, want -10", stats.Score)
	}
}

func TestResolveCancelRefunds(t *testing.T) {
	f := newFixture(t)
	m, a, b, c := seedThreeWayMarket(t, f)

	summary, err := f.settlement.Resolve(context.Background(), m.ID, domain.OutcomeCancel, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if summary.Winners != 0 || summary.Losers != 0 {
		t.Fatalf("cancel summary counted winners/losers: %+v", summary)
	}

	if note := f.market(t, m.ID).ResolutionNote; note != "Market cancelled" {
		t.Fatalf("note = %q", note)
	}

	bets := f.betsByAgent(t, m.ID)
	for _, ag := range []domain.Agent{a, b, c} {
		bet := bets[ag.ID]
		if !bet.Settled || bet.Payout != bet.Amount {
			t.Errorf("%s: bet = %+v, want refund of stake", ag.Name, bet)
		}
		if stats := f.agentScore(t, ag.ID); stats.Score != 0 {
			t.Errorf("%s: score = %d, want 0 after cancel", ag.Name, stats.Score)
		}
	}
}

func TestResolveEmptyWinPool(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	c := f.seedAgent(t, "gamma")
	m := f.seedMarket(t, owner, "Nobody said yes")

	if _, err := f.wager.PlaceBet(context.Background(), m.ID, c.ID, domain.BetPositionNo, 20); err != nil {
		t.Fatalf("seed bet: %v", err)
	}

	summary, err := f.settlement.Resolve(context.Background(), m.ID, domain.OutcomeYes, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if summary.Winners != 0 || summary.TotalWinPool != 0 || summary.TotalLosePool != 20 {
		t.Fatalf("summary = %+v", summary)
	}

	bet := f.betsByAgent(t, m.ID)[c.ID]
	if !bet.Settled || bet.Payout != 0 {
		t.Fatalf("losing bet = %+v, want settled payout 0", bet)
	}
	if stats := f.agentScore(t, c.ID); stats.Score != -20 {
		t.Fatalf("score = %d, want -20", stats.Score)
	}
}

func TestResolveErrors(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	m := f.seedMarket(t, owner, "Edge cases")
	ctx := context.Background()

	if _, err := f.settlement.Resolve(ctx, m.ID, domain.Outcome("maybe"), ""); !errors.Is(err, domain.ErrInvalidOutcome) {
		t.Fatalf("err = %v, want ErrInvalidOutcome", err)
	}
	if _, err := f.settlement.Resolve(ctx, "missing", domain.OutcomeYes, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if _, err := f.settlement.Resolve(ctx, m.ID, domain.OutcomeNo, ""); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := f.settlement.Resolve(ctx, m.ID, domain.OutcomeYes, ""); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("err = %v, want ErrAlreadyResolved", err)
	}
}

func TestResolveLockHeld(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAgent(t, "owner")
	m := f.seedMarket(t, owner, "Contended")

	unlock, err := f.locks.Acquire(context.Background(), "resolve:"+m.ID, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer unlock()

	if _, err := f.settlement.Resolve(context.Background(), m.ID, domain.OutcomeYes, ""); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	if got := f.market(t, m.ID).Status; got != domain.MarketStatusOpen {
		t.Fatalf("status = %s, want open while lock held", got)
	}
}

func TestResolveSkipsAlreadySettledBets(t *testing.T) {
	f := newFixture(t)
	m, a, _, c := seedThreeWayMarket(t, f)
	ctx := context.Background()

	// Simulate a partially applied earlier attempt: C's bet already
	// settled and debited.
	betID := f.betsByAgent(t, m.ID)[c.ID].ID
	applied, err := f.store.Bets.Settle(ctx, betID, 0)
	if err != nil || !applied {
		t.Fatalf("pre-settle: applied=%v err=%v", applied, err)
	}
	if err := f.store.Agents.AdjustScore(ctx, c.ID, -20); err != nil {
		t.Fatalf("pre-debit: %v", err)
	}

	if _, err := f.settlement.Resolve(ctx, m.ID, domain.OutcomeYes, ""); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// C must not be debited twice; A still settles normally.
	if stats := f.agentScore(t, c.ID); stats.Score != -20 {
		t.Fatalf("gamma score = %d, want -20 exactly once", stats.Score)
	}
	if stats := f.agentScore(t, a.ID); stats.Score != 5 {
		t.Fatalf("alpha score = %d, want 5", stats.Score)
	}
}

type captureArchiver struct {
	rec *domain.SettlementRecord
}

func (c *captureArchiver) Archive(_ context.Context, rec domain.SettlementRecord) error {
	c.rec = &rec
	return nil
}

type captureAnnouncer struct {
	event notify.Event
	title string
}

func (c *captureAnnouncer) Announce(_ context.Context, event notify.Event, title, _ string) error {
	c.event = event
	c.title = title
	return nil
}

func TestResolveArchivesAndAnnounces(t *testing.T) {
	f := newFixture(t)
	m, _, _, _ := seedThreeWayMarket(t, f)

	archiver := &captureArchiver{}
	announcer := &captureAnnouncer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	settlement := service.NewSettlementService(
		f.store.Markets, f.store.Bets, f.scores, f.locks, f.bus, archiver, announcer, logger)

	if _, err := settlement.Resolve(context.Background(), m.ID, domain.OutcomeYes, "called it"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if archiver.rec == nil {
		t.Fatal("no settlement record archived")
	}
	if archiver.rec.Market.ID != m.ID || len(archiver.rec.Bets) != 3 {
		t.Fatalf("record = market %s with %d bets", archiver.rec.Market.ID, len(archiver.rec.Bets))
	}
	for _, b := range archiver.rec.Bets {
		if !b.Settled {
			t.Fatalf("archived unsettled bet: %+v", b)
		}
	}
	if announcer.event != notify.EventMarketResolved {
		t.Fatalf("announced event = %q", announcer.event)
	}
}
