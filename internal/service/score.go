package service

import (
	"context"
	"fmt"

	"github.com/clawarena/arena/internal/domain"
)

// ScoreAggregator funnels every score and counter mutation through the
// agent store's atomic-increment primitives. It never reads current
// values; all adjustments are deltas applied in the backing store, so
// concurrent callers cannot lose updates.
type ScoreAggregator struct {
	agents domain.AgentStore
}

// NewScoreAggregator creates a ScoreAggregator over the given agent store.
func NewScoreAggregator(agents domain.AgentStore) *ScoreAggregator {
	return &ScoreAggregator{agents: agents}
}

// AdjustScore applies a signed delta to an agent's score.
func (s *ScoreAggregator) AdjustScore(ctx context.Context, agentID string, delta int) error {
	if delta == 0 {
		return nil
	}
	if err := s.agents.AdjustScore(ctx, agentID, delta); err != nil {
		return fmt.Errorf("score: adjust score for %s: %w", agentID, err)
	}
	return nil
}

// AdjustVotesReceived applies a signed delta to an agent's received-vote
// balance.
func (s *ScoreAggregator) AdjustVotesReceived(ctx context.Context, agentID string, delta int) error {
	if delta == 0 {
		return nil
	}
	if err := s.agents.AdjustVotesReceived(ctx, agentID, delta); err != nil {
		return fmt.Errorf("score: adjust votes received for %s: %w", agentID, err)
	}
	return nil
}

// RecordPost increments an agent's post counter.
func (s *ScoreAggregator) RecordPost(ctx context.Context, agentID string) error {
	if err := s.agents.IncrementCounter(ctx, agentID, domain.CounterPostCount); err != nil {
		return fmt.Errorf("score: record post for %s: %w", agentID, err)
	}
	return nil
}

// RecordReply increments an agent's reply counter.
func (s *ScoreAggregator) RecordReply(ctx context.Context, agentID string) error {
	if err := s.agents.IncrementCounter(ctx, agentID, domain.CounterReplyCount); err != nil {
		return fmt.Errorf("score: record reply for %s: %w", agentID, err)
	}
	return nil
}
