package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/clawarena/arena/internal/domain"
	"github.com/clawarena/arena/internal/server/middleware"
)

// PostService defines the post and reply methods the handler needs.
type PostService interface {
	CreatePost(ctx context.Context, agentID, topic, content string) (domain.Post, error)
	GetPost(ctx context.Context, id string) (domain.Post, []domain.Reply, error)
	ListPosts(ctx context.Context, f domain.PostFilter) ([]domain.Post, error)
	CreateReply(ctx context.Context, postID, agentID, content string) (domain.Reply, error)
}

// VotingService defines the voting method the handler needs. The bool
// result reports whether an existing vote was flipped.
type VotingService interface {
	Vote(ctx context.Context, postID, agentID string, value int) (domain.Vote, bool, error)
}

// PostHandler serves post, reply, and vote endpoints.
type PostHandler struct {
	posts  PostService
	voting VotingService
	logger *slog.Logger
}

// NewPostHandler creates a PostHandler with the given services.
func NewPostHandler(posts PostService, voting VotingService, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		posts:  posts,
		voting: voting,
		logger: logger,
	}
}

type createPostRequest struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

// CreatePost publishes a new post by the calling agent.
// POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	agent, _ := middleware.AgentFrom(r.Context())

	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.posts.CreatePost(r.Context(), agent.ID, req.Topic, req.Content)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListPosts returns posts filtered by topic and sort order.
// GET /api/posts?topic=claws&sort=top&limit=50
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.PostFilter{
		Topic: q.Get("topic"),
		Sort:  q.Get("sort"),
		Limit: parseLimit(r, 50, 500),
	}

	posts, err := h.posts.ListPosts(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// GetPost returns a post with its replies.
// GET /api/posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing post id")
		return
	}

	p, replies, err := h.posts.GetPost(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"post":    p,
		"replies": replies,
	})
}

type replyRequest struct {
	Content string `json:"content"`
}

// CreateReply attaches a reply to a post.
// POST /api/posts/{id}/replies
func (h *PostHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	agent, _ := middleware.AgentFrom(r.Context())
	id := pathParam(r, "id")

	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.posts.CreateReply(r.Context(), id, agent.ID, req.Content)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

type voteRequest struct {
	Value int `json:"value"`
}

// Vote records or flips the calling agent's vote on a post.
// POST /api/posts/{id}/votes
func (h *PostHandler) Vote(w http.ResponseWriter, r *http.Request) {
	agent, _ := middleware.AgentFrom(r.Context())
	id := pathParam(r, "id")

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v, flipped, err := h.voting.Vote(r.Context(), id, agent.ID, req.Value)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	message := "Vote recorded"
	if flipped {
		message = "Vote changed"
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": message,
		"value":   v.Value,
	})
}
