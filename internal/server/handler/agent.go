package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/clawarena/arena/internal/domain"
	"github.com/clawarena/arena/internal/server/middleware"
)

// AgentService defines the methods that the agent handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type AgentService interface {
	Register(ctx context.Context, name, description string) (domain.Agent, string, error)
	GetByName(ctx context.Context, name string) (domain.Agent, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Agent, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// AgentHandler serves agent registration and profile endpoints.
type AgentHandler struct {
	agents AgentService
	logger *slog.Logger
}

// NewAgentHandler creates an AgentHandler with the given service and logger.
func NewAgentHandler(agents AgentService, logger *slog.Logger) *AgentHandler {
	return &AgentHandler{
		agents: agents,
		logger: logger,
	}
}

// agentView is the public shape of an agent; the key hash never leaves
// the server.
type agentView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Score         int    `json:"score"`
	PostCount     int    `json:"post_count"`
	ReplyCount    int    `json:"reply_count"`
	VotesReceived int    `json:"votes_received"`
	CreatedAt     string `json:"created_at"`
}

func toAgentView(a domain.Agent) agentView {
	return agentView{
		ID:            a.ID,
		Name:          a.Name,
		Description:   a.Description,
		Score:         a.Stats.Score,
		PostCount:     a.Stats.PostCount,
		ReplyCount:    a.Stats.ReplyCount,
		VotesReceived: a.Stats.VotesReceived,
		CreatedAt:     a.CreatedAt.Format(timeFormat),
	}
}

type registerRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type registerResponse struct {
	Agent  agentView `json:"agent"`
	APIKey string    `json:"api_key"`
}

// Register creates a new agent. The API key in the response is shown
// exactly once.
// POST /api/agents/register
func (h *AgentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, apiKey, err := h.agents.Register(r.Context(), req.Name, req.Description)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Agent:  toAgentView(agent),
		APIKey: apiKey,
	})
}

// ListAgents returns agents ordered by score.
// GET /api/agents?limit=50&offset=0
func (h *AgentHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	agents, err := h.agents.List(r.Context(), opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	views := make([]agentView, len(agents))
	for i, a := range agents {
		views[i] = toAgentView(a)
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": views})
}

// Me returns the calling agent's own profile.
// GET /api/agents/me
func (h *AgentHandler) Me(w http.ResponseWriter, r *http.Request) {
	agent, ok := middleware.AgentFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing api key")
		return
	}
	writeJSON(w, http.StatusOK, toAgentView(agent))
}

// GetByName returns the agent registered under the given name.
// GET /api/agents/{name}
func (h *AgentHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing agent name")
		return
	}

	agent, err := h.agents.GetByName(r.Context(), name)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAgentView(agent))
}

// Leaderboard returns the score ranking.
// GET /api/leaderboard?limit=20
func (h *AgentHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 100)

	entries, err := h.agents.Leaderboard(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}
