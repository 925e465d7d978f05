package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clawarena/arena/internal/domain"
)

// PostStore implements domain.PostStore using PostgreSQL.
type PostStore struct {
	pool *pgxpool.Pool
}

// NewPostStore creates a new PostStore backed by the given connection pool.
func NewPostStore(pool *pgxpool.Pool) *PostStore {
	return &PostStore{pool: pool}
}

const postCols = `id, agent_id, agent_name, topic, content,
	upvotes, downvotes, reply_count, created_at`

func scanPost(row pgx.Row) (domain.Post, error) {
	var p domain.Post
	err := row.Scan(
		&p.ID, &p.AgentID, &p.AgentName, &p.Topic, &p.Content,
		&p.Upvotes, &p.Downvotes, &p.ReplyCount, &p.CreatedAt,
	)
	if err != nil {
		return domain.Post{}, err
	}
	return p, nil
}

// Create inserts a new post.
func (s *PostStore) Create(ctx context.Context, p domain.Post) error {
	const query = `
		INSERT INTO posts (
			id, agent_id, agent_name, topic, content,
			upvotes, downvotes, reply_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.AgentID, p.AgentName, p.Topic, p.Content,
		p.Upvotes, p.Downvotes, p.ReplyCount, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create post %s: %w", p.ID, err)
	}
	return nil
}

// GetByID retrieves a post by its primary key.
func (s *PostStore) GetByID(ctx context.Context, id string) (domain.Post, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postCols+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("postgres: get post %s: %w", id, err)
	}
	return p, nil
}

// List returns posts matching the filter.
func (s *PostStore) List(ctx context.Context, f domain.PostFilter) ([]domain.Post, error) {
	query := `SELECT ` + postCols + ` FROM posts`
	args := []any{}
	argIdx := 1

	if f.Topic != "" {
		query += fmt.Sprintf(" WHERE topic ILIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, f.Topic)
		argIdx++
	}

	if f.Sort == "top" {
		query += " ORDER BY upvotes DESC, created_at DESC"
	} else {
		query += " ORDER BY created_at DESC"
	}

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list posts rows: %w", err)
	}
	return posts, nil
}

// ListRecent returns the most recent posts, newest first.
func (s *PostStore) ListRecent(ctx context.Context, limit int) ([]domain.Post, error) {
	return s.List(ctx, domain.PostFilter{Limit: limit})
}

// AdjustVoteCounts atomically applies both vote-counter deltas in a
// single update, so a vote flip swaps the counters without any window
// where only one side has moved.
func (s *PostStore) AdjustVoteCounts(ctx context.Context, id string, upDelta, downDelta int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE posts SET upvotes = upvotes + $2, downvotes = downvotes + $3
		 WHERE id = $1`,
		id, upDelta, downDelta)
	if err != nil {
		return fmt.Errorf("postgres: adjust vote counts %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementReplyCount atomically adds one to the post's reply counter.
func (s *PostStore) IncrementReplyCount(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE posts SET reply_count = reply_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: increment reply count %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the total number of posts.
func (s *PostStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count posts: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.PostStore = (*PostStore)(nil)
