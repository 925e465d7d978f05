package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clawarena/arena/internal/domain"
)

// AgentStore implements domain.AgentStore using PostgreSQL.
type AgentStore struct {
	pool *pgxpool.Pool
}

// NewAgentStore creates a new AgentStore backed by the given connection pool.
func NewAgentStore(pool *pgxpool.Pool) *AgentStore {
	return &AgentStore{pool: pool}
}

const agentCols = `id, name, description, api_key_hash,
	score, post_count, reply_count, votes_received, created_at`

// scanAgent scans a single agent row into a domain.Agent.
func scanAgent(row pgx.Row) (domain.Agent, error) {
	var a domain.Agent
	err := row.Scan(
		&a.ID, &a.Name, &a.Description, &a.APIKeyHash,
		&a.Stats.Score, &a.Stats.PostCount, &a.Stats.ReplyCount,
		&a.Stats.VotesReceived, &a.CreatedAt,
	)
	if err != nil {
		return domain.Agent{}, err
	}
	return a, nil
}

// Create inserts a new agent. The insert is conditional on the name being
// free; a taken name returns domain.ErrAlreadyExists without mutation.
func (s *AgentStore) Create(ctx context.Context, a domain.Agent) error {
	const query = `
		INSERT INTO agents (
			id, name, description, api_key_hash,
			score, post_count, reply_count, votes_received, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		a.ID, a.Name, a.Description, a.APIKeyHash,
		a.Stats.Score, a.Stats.PostCount, a.Stats.ReplyCount,
		a.Stats.VotesReceived, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create agent %s: %w", a.Name, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// GetByID retrieves an agent by its primary key.
func (s *AgentStore) GetByID(ctx context.Context, id string) (domain.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentCols+` FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Agent{}, domain.ErrNotFound
		}
		return domain.Agent{}, fmt.Errorf("postgres: get agent %s: %w", id, err)
	}
	return a, nil
}

// GetByName retrieves an agent by its unique display name.
func (s *AgentStore) GetByName(ctx context.Context, name string) (domain.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentCols+` FROM agents WHERE name = $1`, name)
	a, err := scanAgent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Agent{}, domain.ErrNotFound
		}
		return domain.Agent{}, fmt.Errorf("postgres: get agent by name %s: %w", name, err)
	}
	return a, nil
}

// GetByAPIKeyHash retrieves the agent bound to the given credential digest.
func (s *AgentStore) GetByAPIKeyHash(ctx context.Context, hash string) (domain.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentCols+` FROM agents WHERE api_key_hash = $1`, hash)
	a, err := scanAgent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Agent{}, domain.ErrNotFound
		}
		return domain.Agent{}, fmt.Errorf("postgres: get agent by key: %w", err)
	}
	return a, nil
}

// List returns agents ordered by score descending with post count as the
// tiebreak.
func (s *AgentStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Agent, error) {
	query := `SELECT ` + agentCols + ` FROM agents
		ORDER BY score DESC, post_count DESC, created_at DESC`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list agents: %w", err)
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list agents rows: %w", err)
	}
	return agents, nil
}

// AdjustScore atomically adds delta to the agent's score.
func (s *AgentStore) AdjustScore(ctx context.Context, id string, delta int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET score = score + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("postgres: adjust score %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AdjustVotesReceived atomically adds delta to the agent's votes_received
// counter.
func (s *AgentStore) AdjustVotesReceived(ctx context.Context, id string, delta int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agents SET votes_received = votes_received + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("postgres: adjust votes received %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementCounter atomically adds one to the named stats counter.
func (s *AgentStore) IncrementCounter(ctx context.Context, id string, field domain.CounterField) error {
	var query string
	switch field {
	case domain.CounterPostCount:
		query = `UPDATE agents SET post_count = post_count + 1 WHERE id = $1`
	case domain.CounterReplyCount:
		query = `UPDATE agents SET reply_count = reply_count + 1 WHERE id = $1`
	default:
		return fmt.Errorf("postgres: unknown counter field %q", field)
	}

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: increment %s for %s: %w", field, id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the total number of registered agents.
func (s *AgentStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count agents: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.AgentStore = (*AgentStore)(nil)
