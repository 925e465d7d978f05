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

const voteLockTTL = 10 * time.Second

// VotingService is the voting ledger: one ±1 vote per (post, agent)
// pair, flippable but never deleted. Post counters, the author's score,
// and the author's received-vote balance move together with every
// accepted vote.
type VotingService struct {
	posts  domain.PostStore
	votes  domain.VoteStore
	scores *ScoreAggregator
	locks  domain.LockManager
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewVotingService creates a VotingService with all required dependencies.
func NewVotingService(
	posts domain.PostStore,
	votes domain.VoteStore,
	scores *ScoreAggregator,
	locks domain.LockManager,
	bus domain.SignalBus,
	logger *slog.Logger,
) *VotingService {
	return &VotingService{
		posts:  posts,
		votes:  votes,
		scores: scores,
		locks:  locks,
		bus:    bus,
		logger: logger,
	}
}

// Vote records or flips the agent's vote on a post. The returned flag
// reports whether an existing vote was flipped rather than a new one
// recorded.
//
// The read-check-mutate sequence is serialized per (post, agent) through
// the lock manager; the vote store's uniqueness and value guards catch
// whatever still races past it.
func (s *VotingService) Vote(ctx context.Context, postID, agentID string, value int) (domain.Vote, bool, error) {
	if value != 1 && value != -1 {
		return domain.Vote{}, false, fmt.Errorf("voting: value %d: %w", value, domain.ErrInvalidVoteValue)
	}

	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return domain.Vote{}, false, fmt.Errorf("voting: post %s: %w", postID, err)
	}
	if p.AgentID == agentID {
		return domain.Vote{}, false, fmt.Errorf("voting: post %s: %w", postID, domain.ErrSelfVote)
	}

	unlock, err := s.locks.Acquire(ctx, "vote:"+postID+":"+agentID, voteLockTTL)
	if err != nil {
		return domain.Vote{}, false, fmt.Errorf("voting: post %s agent %s: %w", postID, agentID, err)
	}
	defer unlock()

	v := domain.Vote{
		ID:        uuid.New().String(),
		PostID:    postID,
		AgentID:   agentID,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}

	flipped := false
	if err := s.votes.CreateUnique(ctx, v); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Vote{}, false, fmt.Errorf("voting: create vote: %w", err)
		}
		v, flipped, err = s.flip(ctx, postID, agentID, value)
		if err != nil {
			return domain.Vote{}, false, err
		}
	} else {
		if err := s.applyNewVote(ctx, p, value); err != nil {
			return domain.Vote{}, false, err
		}
	}

	s.logger.InfoContext(ctx, "voting: vote recorded",
		slog.String("post_id", postID),
		slog.String("agent_id", agentID),
		slog.Int("value", value),
		slog.Bool("flipped", flipped),
	)

	publish(ctx, s.bus, s.logger, ChannelVotes, VoteEvent{
		PostID:  postID,
		AgentID: agentID,
		Value:   value,
		Flipped: flipped,
		VotedAt: time.Now().UTC(),
	})

	return v, flipped, nil
}

// applyNewVote moves the counters for a first-time vote: the matching
// post counter, the author's score by the vote value, and the author's
// received balance by one for upvotes only.
func (s *VotingService) applyNewVote(ctx context.Context, p domain.Post, value int) error {
	up, down := 0, 0
	if value == 1 {
		up = 1
	} else {
		down = 1
	}
	if err := s.posts.AdjustVoteCounts(ctx, p.ID, up, down); err != nil {
		return fmt.Errorf("voting: adjust counts for post %s: %w", p.ID, err)
	}
	if err := s.scores.AdjustScore(ctx, p.AgentID, value); err != nil {
		return err
	}
	if value == 1 {
		if err := s.scores.AdjustVotesReceived(ctx, p.AgentID, 1); err != nil {
			return err
		}
	}
	return nil
}

// flip reverses an existing vote. The counter swap is one atomic
// two-column adjust, and the value update is guarded by the old value,
// so a concurrent flip surfaces as ErrConcurrencyConflict instead of
// double-applying.
func (s *VotingService) flip(ctx context.Context, postID, agentID string, value int) (domain.Vote, bool, error) {
	existing, err := s.votes.GetByPostAgent(ctx, postID, agentID)
	if err != nil {
		return domain.Vote{}, false, fmt.Errorf("voting: load vote for post %s agent %s: %w", postID, agentID, err)
	}
	if existing.Value == value {
		return domain.Vote{}, false, fmt.Errorf("voting: post %s agent %s: %w", postID, agentID, domain.ErrDuplicateVote)
	}

	if err := s.votes.UpdateValue(ctx, existing.ID, existing.Value, value); err != nil {
		return domain.Vote{}, false, fmt.Errorf("voting: flip vote %s: %w", existing.ID, err)
	}

	// -1 -> +1 moves one tally from downvotes to upvotes; +1 -> -1 the
	// reverse. The author's score swings by twice the new value.
	up, down := 1, -1
	if value == -1 {
		up, down = -1, 1
	}
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return domain.Vote{}, false, fmt.Errorf("voting: post %s: %w", postID, err)
	}
	if err := s.posts.AdjustVoteCounts(ctx, postID, up, down); err != nil {
		return domain.Vote{}, false, fmt.Errorf("voting: adjust counts for post %s: %w", postID, err)
	}
	if err := s.scores.AdjustScore(ctx, p.AgentID, 2*value); err != nil {
		return domain.Vote{}, false, err
	}
	if err := s.scores.AdjustVotesReceived(ctx, p.AgentID, value); err != nil {
		return domain.Vote{}, false, err
	}

	existing.Value = value
	return existing, true, nil
}
