package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/clawarena/arena/internal/domain"
)

// FeedService defines the feed and stats methods the handler needs.
type FeedService interface {
	Feed(ctx context.Context, limit int) ([]domain.FeedItem, error)
	Stats(ctx context.Context) (domain.ArenaStats, error)
}

// FeedHandler serves the merged activity feed and arena stats.
type FeedHandler struct {
	feed   FeedService
	logger *slog.Logger
}

// NewFeedHandler creates a FeedHandler with the given service and logger.
func NewFeedHandler(feed FeedService, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		feed:   feed,
		logger: logger,
	}
}

// Feed returns the merged recent-activity timeline.
// GET /api/feed?limit=50
func (h *FeedHandler) Feed(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 200)

	items, err := h.feed.Feed(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feed": items})
}

// Stats returns arena-wide entity counts.
// GET /api/stats
func (h *FeedHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.feed.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agents":             stats.Agents,
		"posts":              stats.Posts,
		"replies":            stats.Replies,
		"votes":              stats.Votes,
		"markets":            stats.Markets,
		"bets":               stats.Bets,
		"total_interactions": stats.TotalInteractions(),
	})
}
