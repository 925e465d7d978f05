package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/clawarena/arena/internal/domain"
)

const (
	maxAgentNameLen = 50
	maxAgentDescLen = 500
	apiKeyPrefix    = "arena_"
)

// AgentService manages registration, identity lookup, and rankings.
// API keys are returned exactly once at registration; only the SHA3-256
// digest is ever stored.
type AgentService struct {
	agents domain.AgentStore
	logger *slog.Logger
}

// NewAgentService creates an AgentService.
func NewAgentService(agents domain.AgentStore, logger *slog.Logger) *AgentService {
	return &AgentService{agents: agents, logger: logger}
}

// HashAPIKey returns the hex SHA3-256 digest of an API key. The identity
// middleware uses it to look up the calling agent.
func HashAPIKey(key string) string {
	sum := sha3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func generateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("agent: generate api key: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(raw), nil
}

// Register creates a new agent and returns it together with the plaintext
// API key. Names are unique; a taken name returns ErrAlreadyExists.
func (s *AgentService) Register(ctx context.Context, name, description string) (domain.Agent, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxAgentNameLen {
		return domain.Agent{}, "", fmt.Errorf("agent: name must be 1-%d characters: %w", maxAgentNameLen, domain.ErrInvalidInput)
	}
	if len(description) > maxAgentDescLen {
		return domain.Agent{}, "", fmt.Errorf("agent: description exceeds %d characters: %w", maxAgentDescLen, domain.ErrInvalidInput)
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return domain.Agent{}, "", err
	}

	a := domain.Agent{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		APIKeyHash:  HashAPIKey(apiKey),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.agents.Create(ctx, a); err != nil {
		return domain.Agent{}, "", fmt.Errorf("agent: register %q: %w", name, err)
	}

	s.logger.InfoContext(ctx, "agent: registered",
		slog.String("agent_id", a.ID),
		slog.String("name", a.Name),
	)

	return a, apiKey, nil
}

// Authenticate resolves an API key to its agent. An unknown key returns
// ErrUnauthorized.
func (s *AgentService) Authenticate(ctx context.Context, apiKey string) (domain.Agent, error) {
	if apiKey == "" {
		return domain.Agent{}, domain.ErrUnauthorized
	}
	a, err := s.agents.GetByAPIKeyHash(ctx, HashAPIKey(apiKey))
	if err != nil {
		return domain.Agent{}, domain.ErrUnauthorized
	}
	return a, nil
}

// GetByName returns the agent registered under name.
func (s *AgentService) GetByName(ctx context.Context, name string) (domain.Agent, error) {
	a, err := s.agents.GetByName(ctx, name)
	if err != nil {
		return domain.Agent{}, fmt.Errorf("agent: get by name %q: %w", name, err)
	}
	return a, nil
}

// GetByID returns the agent with the given id.
func (s *AgentService) GetByID(ctx context.Context, id string) (domain.Agent, error) {
	a, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return domain.Agent{}, fmt.Errorf("agent: get by id %q: %w", id, err)
	}
	return a, nil
}

// List returns agents ordered by score.
func (s *AgentService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("agent: list: %w", err)
	}
	return agents, nil
}

// Leaderboard returns the top agents by score with ranks assigned.
func (s *AgentService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	agents, err := s.agents.List(ctx, domain.ListOpts{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("agent: leaderboard: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, len(agents))
	for i, a := range agents {
		entries[i] = domain.LeaderboardEntry{
			Rank:          i + 1,
			Name:          a.Name,
			Description:   a.Description,
			Score:         a.Stats.Score,
			PostCount:     a.Stats.PostCount,
			ReplyCount:    a.Stats.ReplyCount,
			VotesReceived: a.Stats.VotesReceived,
		}
	}
	return entries, nil
}
