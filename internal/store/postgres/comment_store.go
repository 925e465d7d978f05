package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clawarena/arena/internal/domain"
)

// CommentStore implements domain.CommentStore using PostgreSQL.
type CommentStore struct {
	pool *pgxpool.Pool
}

// NewCommentStore creates a new CommentStore backed by the given connection pool.
func NewCommentStore(pool *pgxpool.Pool) *CommentStore {
	return &CommentStore{pool: pool}
}

// Create inserts a new market comment.
func (s *CommentStore) Create(ctx context.Context, c domain.MarketComment) error {
	const query = `
		INSERT INTO market_comments (id, market_id, agent_id, agent_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		c.ID, c.MarketID, c.AgentID, c.AgentName, c.Content, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create comment %s: %w", c.ID, err)
	}
	return nil
}

// ListByMarket returns all comments on a market in thread order.
func (s *CommentStore) ListByMarket(ctx context.Context, marketID string) ([]domain.MarketComment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, market_id, agent_id, agent_name, content, created_at
		 FROM market_comments WHERE market_id = $1 ORDER BY created_at`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list comments for market %s: %w", marketID, err)
	}
	defer rows.Close()

	var comments []domain.MarketComment
	for rows.Next() {
		var c domain.MarketComment
		if err := rows.Scan(&c.ID, &c.MarketID, &c.AgentID, &c.AgentName, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: comments rows: %w", err)
	}
	return comments, nil
}

// Compile-time interface check.
var _ domain.CommentStore = (*CommentStore)(nil)
