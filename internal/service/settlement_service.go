package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/clawarena/arena/internal/domain"
	"github.com/clawarena/arena/internal/notify"
)

// Default resolution notes when the caller does not supply one.
const (
	noteResolvedYes = "Resolved as YES"
	noteResolvedNo  = "Resolved as NO"
	noteCancelled   = "Market cancelled"
)

const resolveLockTTL = 30 * time.Second

// Announcer delivers human-readable notifications for settlement events.
type Announcer interface {
	Announce(ctx context.Context, event notify.Event, title, message string) error
}

// Archiver persists a durable settlement record after a market resolves.
type Archiver interface {
	Archive(ctx context.Context, rec domain.SettlementRecord) error
}

// SettlementService is the settlement engine. Resolve moves a market to
// a terminal status exactly once and pays out every bet under the
// pari-mutuel rule. Each bet settles through a guarded update, so a
// retry after partial failure skips bets that already paid out instead
// of paying them twice.
type SettlementService struct {
	markets  domain.MarketStore
	bets     domain.BetStore
	scores   *ScoreAggregator
	locks    domain.LockManager
	bus      domain.SignalBus
	archiver Archiver  // optional
	announce Announcer // optional
	logger   *slog.Logger
}

// NewSettlementService creates a SettlementService. archiver and announce
// may be nil when the deployment has no blob storage or webhooks
// configured.
func NewSettlementService(
	markets domain.MarketStore,
	bets domain.BetStore,
	scores *ScoreAggregator,
	locks domain.LockManager,
	bus domain.SignalBus,
	archiver Archiver,
	announce Announcer,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		markets:  markets,
		bets:     bets,
		scores:   scores,
		locks:    locks,
		bus:      bus,
		archiver: archiver,
		announce: announce,
		logger:   logger,
	}
}

// Resolve settles the market with the given outcome. The status flip is
// a single guarded update and happens before any bet mutation; once it
// lands, no concurrent resolution and no new bet can interleave.
//
// Winner profit is round(amount / totalWinPool * totalLosePool), rounded
// half up independently per winner. Rounding drift against the lose pool
// is accepted, not redistributed.
func (s *SettlementService) Resolve(ctx context.Context, marketID string, outcome domain.Outcome, note string) (domain.SettlementSummary, error) {
	var status domain.MarketStatus
	switch outcome {
	case domain.OutcomeYes:
		status = domain.MarketStatusResolvedYes
		if note == "" {
			note = noteResolvedYes
		}
	case domain.OutcomeNo:
		status = domain.MarketStatusResolvedNo
		if note == "" {
			note = noteResolvedNo
		}
	case domain.OutcomeCancel:
		status = domain.MarketStatusCancelled
		if note == "" {
			note = noteCancelled
		}
	default:
		return domain.SettlementSummary{}, fmt.Errorf("settlement: outcome %q: %w", outcome, domain.ErrInvalidOutcome)
	}

	unlock, err := s.locks.Acquire(ctx, "resolve:"+marketID, resolveLockTTL)
	if err != nil {
		return domain.SettlementSummary{}, fmt.Errorf("settlement: market %s: %w", marketID, err)
	}
	defer unlock()

	resolvedAt := time.Now().UTC()
	if err := s.markets.BeginResolution(ctx, marketID, status, note, resolvedAt); err != nil {
		return domain.SettlementSummary{}, fmt.Errorf("settlement: market %s: %w", marketID, err)
	}

	bets, err := s.bets.ListByMarket(ctx, marketID)
	if err != nil {
		return domain.SettlementSummary{}, fmt.Errorf("settlement: list bets for market %s: %w", marketID, err)
	}

	summary := domain.SettlementSummary{MarketID: marketID, Outcome: outcome}

	if outcome == domain.OutcomeCancel {
		if err := s.refundAll(ctx, bets); err != nil {
			return summary, err
		}
	} else {
		winning := domain.BetPositionYes
		if outcome == domain.OutcomeNo {
			winning = domain.BetPositionNo
		}
		if err := s.payOut(ctx, bets, winning, &summary); err != nil {
			return summary, err
		}
	}

	s.logger.InfoContext(ctx, "settlement: market resolved",
		slog.String("market_id", marketID),
		slog.String("outcome", string(outcome)),
		slog.Int("winners", summary.Winners),
		slog.Int("losers", summary.Losers),
		slog.Int("win_pool", summary.TotalWinPool),
		slog.Int("lose_pool", summary.TotalLosePool),
	)

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return summary, fmt.Errorf("settlement: reload market %s: %w", marketID, err)
	}

	publish(ctx, s.bus, s.logger, ChannelMarkets, MarketEvent{
		MarketID: marketID,
		Kind:     "resolved",
		Status:   string(status),
		Question: m.Question,
		Winners:  summary.Winners,
		Losers:   summary.Losers,
		At:       resolvedAt,
	})

	s.announceResolution(ctx, m, outcome, summary)
	s.archive(ctx, m, summary)

	return summary, nil
}

// refundAll settles every bet at its own stake. Scores do not move on a
// cancellation.
func (s *SettlementService) refundAll(ctx context.Context, bets []domain.Bet) error {
	for _, b := range bets {
		if _, err := s.bets.Settle(ctx, b.ID, b.Amount); err != nil {
			return fmt.Errorf("settlement: refund bet %s: %w", b.ID, err)
		}
	}
	return nil
}

// payOut settles every bet for a yes/no resolution. Pool totals are
// recomputed from the bet list itself, so a retried resolution uses the
// same denominators as the first attempt.
func (s *SettlementService) payOut(ctx context.Context, bets []domain.Bet, winning domain.BetPosition, summary *domain.SettlementSummary) error {
	for _, b := range bets {
		if b.Position == winning {
			summary.Winners++
			summary.TotalWinPool += b.Amount
		} else {
			summary.Losers++
			summary.TotalLosePool += b.Amount
		}
	}

	for _, b := range bets {
		if b.Position != winning {
			applied, err := s.bets.Settle(ctx, b.ID, 0)
			if err != nil {
				return fmt.Errorf("settlement: settle losing bet %s: %w", b.ID, err)
			}
			if !applied {
				continue
			}
			if err := s.scores.AdjustScore(ctx, b.AgentID, -b.Amount); err != nil {
				return fmt.Errorf("settlement: debit agent %s: %w", b.AgentID, err)
			}
			continue
		}

		profit := 0
		if summary.TotalWinPool > 0 {
			profit = int(math.Round(float64(b.Amount) / float64(summary.TotalWinPool) * float64(summary.TotalLosePool)))
		}
		applied, err := s.bets.Settle(ctx, b.ID, b.Amount+profit)
		if err != nil {
			return fmt.Errorf("settlement: settle winning bet %s: %w", b.ID, err)
		}
		if !applied {
			continue
		}
		if err := s.scores.AdjustScore(ctx, b.AgentID, profit); err != nil {
			return fmt.Errorf("settlement: credit agent %s: %w", b.AgentID, err)
		}
	}

	return nil
}

func (s *SettlementService) announceResolution(ctx context.Context, m domain.Market, outcome domain.Outcome, summary domain.SettlementSummary) {
	if s.announce == nil {
		return
	}

	event := notify.EventMarketResolved
	title := fmt.Sprintf("Market resolved: %s", string(outcome))
	if outcome == domain.OutcomeCancel {
		event = notify.EventMarketCancelled
		title = "Market cancelled"
	}
	message := fmt.Sprintf("%s\nWinners: %d, losers: %d, pools: %d/%d",
		m.Question, summary.Winners, summary.Losers, summary.TotalWinPool, summary.TotalLosePool)

	if err := s.announce.Announce(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "settlement: notify failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

// archive writes the final settlement record to blob storage. Archival
// failures are logged, never surfaced: the resolution itself already
// committed.
func (s *SettlementService) archive(ctx context.Context, m domain.Market, summary domain.SettlementSummary) {
	if s.archiver == nil {
		return
	}

	bets, err := s.bets.ListByMarket(ctx, m.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "settlement: archive list bets failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	rec := domain.SettlementRecord{
		Market:     m,
		Summary:    summary,
		Bets:       bets,
		ArchivedAt: time.Now().UTC(),
	}
	if err := s.archiver.Archive(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "settlement: archive failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}
