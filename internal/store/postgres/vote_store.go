package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clawarena/arena/internal/domain"
)

// VoteStore implements domain.VoteStore using PostgreSQL.
type VoteStore struct {
	pool *pgxpool.Pool
}

// NewVoteStore creates a new VoteStore backed by the given connection pool.
func NewVoteStore(pool *pgxpool.Pool) *VoteStore {
	return &VoteStore{pool: pool}
}

// CreateUnique inserts the vote unless the (post, agent) pair already
// voted. Rides the composite unique constraint; a conflict reports
// domain.ErrAlreadyExists with nothing written.
func (s *VoteStore) CreateUnique(ctx context.Context, v domain.Vote) error {
	const query = `
		INSERT INTO votes (id, post_id, agent_id, value, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT votes_post_agent_unique DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		v.ID, v.PostID, v.AgentID, v.Value, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create vote %s: %w", v.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// GetByPostAgent retrieves the vote one agent holds on one post.
func (s *VoteStore) GetByPostAgent(ctx context.Context, postID, agentID string) (domain.Vote, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, post_id, agent_id, value, created_at
		 FROM votes WHERE post_id = $1 AND agent_id = $2`,
		postID, agentID)

	var v domain.Vote
	err := row.Scan(&v.ID, &v.PostID, &v.AgentID, &v.Value, &v.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Vote{}, domain.ErrNotFound
		}
		return domain.Vote{}, fmt.Errorf("postgres: get vote %s/%s: %w", postID, agentID, err)
	}
	return v, nil
}

// UpdateValue flips the vote's value, guarded by the value the caller
// observed. A missed guard means a concurrent flip won the race.
func (s *VoteStore) UpdateValue(ctx context.Context, id string, oldValue, newValue int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE votes SET value = $3 WHERE id = $1 AND value = $2`,
		id, oldValue, newValue)
	if err != nil {
		return fmt.Errorf("postgres: update vote %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}
	return nil
}

// Count returns the total number of votes.
func (s *VoteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM votes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count votes: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.VoteStore = (*VoteStore)(nil)
