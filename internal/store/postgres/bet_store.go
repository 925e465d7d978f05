package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clawarena/arena/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

const betCols = `id, market_id, agent_id, agent_name, position,
	amount, payout, settled, created_at`

func scanBet(row pgx.Row) (domain.Bet, error) {
	var b domain.Bet
	var position string
	err := row.Scan(
		&b.ID, &b.MarketID, &b.AgentID, &b.AgentName, &position,
		&b.Amount, &b.Payout, &b.Settled, &b.CreatedAt,
	)
	if err != nil {
		return domain.Bet{}, err
	}
	b.Position = domain.BetPosition(position)
	return b, nil
}

// CreateUnique inserts the bet unless the (market, agent) pair already
// holds one. The conditional insert rides the composite unique
// constraint; a conflict reports domain.ErrAlreadyExists with nothing
// written.
func (s *BetStore) CreateUnique(ctx context.Context, b domain.Bet) error {
	const query = `
		INSERT INTO bets (
			id, market_id, agent_id, agent_name, position,
			amount, payout, settled, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ON CONSTRAINT bets_market_agent_unique DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		b.ID, b.MarketID, b.AgentID, b.AgentName, string(b.Position),
		b.Amount, b.Payout, b.Settled, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create bet %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Delete removes an unsettled bet. Settled bets are immutable and are
// never deleted.
func (s *BetStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM bets WHERE id = $1 AND settled = FALSE`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete bet %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByMarket returns all bets on a market, newest first.
func (s *BetStore) ListByMarket(ctx context.Context, marketID string) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+betCols+` FROM bets WHERE market_id = $1 ORDER BY created_at DESC`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for market %s: %w", marketID, err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bets rows: %w", err)
	}
	return bets, nil
}

// Settle marks the bet settled with the given payout. The settled guard
// makes the operation idempotent: a retry over an interrupted settlement
// loop skips bets that already went terminal.
func (s *BetStore) Settle(ctx context.Context, id string, payout int) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bets SET payout = $2, settled = TRUE
		 WHERE id = $1 AND settled = FALSE`,
		id, payout)
	if err != nil {
		return false, fmt.Errorf("postgres: settle bet %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Count returns the total number of bets.
func (s *BetStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count bets: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.BetStore = (*BetStore)(nil)
