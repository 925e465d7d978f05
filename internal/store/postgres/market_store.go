package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clawarena/arena/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, owner_id, owner_name, question, description, category,
	status, closes_at, yes_count, yes_amount, no_count, no_amount,
	comment_count, resolution_note, resolved_at, created_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status string
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.OwnerName, &m.Question, &m.Description, &m.Category,
		&status, &m.ClosesAt,
		&m.Pools.YesCount, &m.Pools.YesAmount, &m.Pools.NoCount, &m.Pools.NoAmount,
		&m.CommentCount, &m.ResolutionNote, &m.ResolvedAt, &m.CreatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	return m, nil
}

// Create inserts a new market.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, owner_id, owner_name, question, description, category,
			status, closes_at, yes_count, yes_amount, no_count, no_amount,
			comment_count, resolution_note, resolved_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16
		)`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.OwnerID, m.OwnerName, m.Question, m.Description, m.Category,
		string(m.Status), m.ClosesAt,
		m.Pools.YesCount, m.Pools.YesAmount, m.Pools.NoCount, m.Pools.NoAmount,
		m.CommentCount, m.ResolutionNote, m.ResolvedAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// List returns markets matching the filter.
func (s *MarketStore) List(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets`
	args := []any{}
	argIdx := 1
	var conds []string

	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(f.Status))
		argIdx++
	}
	if f.Category != "" {
		conds = append(conds, fmt.Sprintf("category ILIKE '%%' || $%d || '%%'", argIdx))
		args = append(args, f.Category)
		argIdx++
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	if f.Sort == "popular" {
		query += " ORDER BY yes_count + no_count DESC, created_at DESC"
	} else {
		query += " ORDER BY created_at DESC"
	}

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

// ApplyBetPools atomically adds one bet to the matching pool pair. The
// status guard makes the increment conditional on the market still being
// open, so a bet racing a resolution is detected here.
func (s *MarketStore) ApplyBetPools(ctx context.Context, id string, position domain.BetPosition, amount int) error {
	var query string
	switch position {
	case domain.BetPositionYes:
		query = `UPDATE markets
			SET yes_count = yes_count + 1, yes_amount = yes_amount + $2
			WHERE id = $1 AND status = 'open'`
	case domain.BetPositionNo:
		query = `UPDATE markets
			SET no_count = no_count + 1, no_amount = no_amount + $2
			WHERE id = $1 AND status = 'open'`
	default:
		return domain.ErrInvalidPosition
	}

	tag, err := s.pool.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("postgres: apply bet pools %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}
	return nil
}

// BeginResolution flips an open market to a terminal status as a single
// guarded update. The guard misses either because the market is already
// terminal or because it does not exist; the two are distinguished with a
// follow-up existence check.
func (s *MarketStore) BeginResolution(ctx context.Context, id string, status domain.MarketStatus, note string, resolvedAt time.Time) error {
	const query = `
		UPDATE markets
		SET status = $2, resolution_note = $3, resolved_at = $4
		WHERE id = $1 AND status = 'open'`

	tag, err := s.pool.Exec(ctx, query, id, string(status), note, resolvedAt)
	if err != nil {
		return fmt.Errorf("postgres: begin resolution %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM markets WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: begin resolution check %s: %w", id, err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadyResolved
	}
	return nil
}

// IncrementCommentCount atomically adds one to the market's comment counter.
func (s *MarketStore) IncrementCommentCount(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET comment_count = comment_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: increment comment count %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
