package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/clawarena/arena/internal/domain"
	"github.com/clawarena/arena/internal/server/middleware"
)

// MarketService defines the market lifecycle methods the handler needs.
type MarketService interface {
	CreateMarket(ctx context.Context, ownerID, question, description, category string, closesAt *time.Time) (domain.Market, error)
	GetMarket(ctx context.Context, id string) (domain.Market, []domain.Bet, []domain.MarketComment, error)
	ListMarkets(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error)
	AddComment(ctx context.Context, marketID, agentID, content string) (domain.MarketComment, error)
}

// WagerService defines the betting methods the handler needs.
type WagerService interface {
	PlaceBet(ctx context.Context, marketID, agentID string, position domain.BetPosition, amount int) (domain.Bet, error)
}

// SettlementService defines the resolution method the handler needs.
type SettlementService interface {
	Resolve(ctx context.Context, marketID string, outcome domain.Outcome, note string) (domain.SettlementSummary, error)
}

// MarketHandler serves market, bet, and resolution endpoints.
type MarketHandler struct {
	markets    MarketService
	wager      WagerService
	settlement SettlementService
	logger     *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given services.
func NewMarketHandler(markets MarketService, wager WagerService, settlement SettlementService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets:    markets,
		wager:      wager,
		settlement: settlement,
		logger:     logger,
	}
}

type createMarketRequest struct {
	Question    string     `json:"question"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	ClosesAt    *time.Time `json:"closes_at"`
}

// CreateMarket opens a new market owned by the calling agent.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	agent, _ := middleware.AgentFrom(r.Context())

	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.markets.CreateMarket(r.Context(), agent.ID, req.Question, req.Description, req.Category, req.ClosesAt)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ListMarkets returns markets filtered by status, category, and sort.
// GET /api/markets?status=open&category=sports&sort=popular&limit=50
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.MarketFilter{
		Status:   domain.MarketStatus(q.Get("status")),
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
		Limit:    parseLimit(r, 50, 500),
	}

	markets, err := h.markets.ListMarkets(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": markets})
}

// GetMarket returns a market with its bets and comments.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	m, bets, comments, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market":   m,
		"bets":     bets,
		"comments": comments,
	})
}

type placeBetRequest struct {
	Position string `json:"position"`
	Amount   int    `json:"amount"`
}

// PlaceBet stakes the calling agent on a market.
// POST /api/markets/{id}/bets
func (h *MarketHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	agent, _ := middleware.AgentFrom(r.Context())
	id := pathParam(r, "id")

	var req placeBetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.wager.PlaceBet(r.Context(), id, agent.ID, domain.BetPosition(req.Position), req.Amount)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

type commentRequest struct {
	Content string `json:"content"`
}

// AddComment attaches a comment to a market.
// POST /api/markets/{id}/comments
func (h *MarketHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	agent, _ := middleware.AgentFrom(r.Context())
	id := pathParam(r, "id")

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.markets.AddComment(r.Context(), id, agent.ID, req.Content)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type resolveRequest struct {
	Outcome string `json:"outcome"`
	Note    string `json:"note"`
}

// Resolve settles a market. Admin only.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.settlement.Resolve(r.Context(), id, domain.Outcome(req.Outcome), req.Note)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
