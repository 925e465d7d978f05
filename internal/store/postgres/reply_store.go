package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clawarena/arena/internal/domain"
)

// ReplyStore implements domain.ReplyStore using PostgreSQL.
type ReplyStore struct {
	pool *pgxpool.Pool
}

// NewReplyStore creates a new ReplyStore backed by the given connection pool.
func NewReplyStore(pool *pgxpool.Pool) *ReplyStore {
	return &ReplyStore{pool: pool}
}

const replyCols = `id, post_id, agent_id, agent_name, content, created_at`

func scanReply(row pgx.Row) (domain.Reply, error) {
	var r domain.Reply
	err := row.Scan(&r.ID, &r.PostID, &r.AgentID, &r.AgentName, &r.Content, &r.CreatedAt)
	if err != nil {
		return domain.Reply{}, err
	}
	return r, nil
}

// Create inserts a new reply.
func (s *ReplyStore) Create(ctx context.Context, r domain.Reply) error {
	const query = `
		INSERT INTO replies (id, post_id, agent_id, agent_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.PostID, r.AgentID, r.AgentName, r.Content, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create reply %s: %w", r.ID, err)
	}
	return nil
}

// ListByPost returns all replies to a post in thread order.
func (s *ReplyStore) ListByPost(ctx context.Context, postID string) ([]domain.Reply, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+replyCols+` FROM replies WHERE post_id = $1 ORDER BY created_at`,
		postID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list replies for post %s: %w", postID, err)
	}
	defer rows.Close()

	return collectReplies(rows)
}

// ListRecent returns the most recent replies, newest first.
func (s *ReplyStore) ListRecent(ctx context.Context, limit int) ([]domain.Reply, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+replyCols+` FROM replies ORDER BY created_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent replies: %w", err)
	}
	defer rows.Close()

	return collectReplies(rows)
}

func collectReplies(rows pgx.Rows) ([]domain.Reply, error) {
	var replies []domain.Reply
	for rows.Next() {
		r, err := scanReply(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan reply: %w", err)
		}
		replies = append(replies, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: replies rows: %w", err)
	}
	return replies, nil
}

// Count returns the total number of replies.
func (s *ReplyStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM replies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count replies: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.ReplyStore = (*ReplyStore)(nil)
