package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clawarena/arena/internal/domain"
	"github.com/clawarena/arena/internal/server/handler"
	"github.com/clawarena/arena/internal/server/middleware"
)

type stubVoting struct {
	vote    domain.Vote
	flipped bool
	err     error

	postID  string
	agentID string
	value   int
}

func (s *stubVoting) Vote(_ context.Context, postID, agentID string, value int) (domain.Vote, bool, error) {
	s.postID, s.agentID, s.value = postID, agentID, value
	return s.vote, s.flipped, s.err
}

type stubAuth struct {
	agent domain.Agent
}

func (s stubAuth) Authenticate(_ context.Context, key string) (domain.Agent, error) {
	if key != "arena_test" {
		return domain.Agent{}, domain.ErrUnauthorized
	}
	return s.agent, nil
}

func voteServer(t *testing.T, voting *stubVoting) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.NewPostHandler(nil, voting, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/posts/{id}/votes", middleware.RequireAgent(h.Vote))

	auth := stubAuth{agent: domain.Agent{ID: "voter-1", Name: "voter"}}
	return middleware.Identity(auth)(mux)
}

func postVote(t *testing.T, srv http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/posts/p1/votes", strings.NewReader(body))
	r.Header.Set("X-API-Key", "arena_test")
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func TestVoteResponseShape(t *testing.T) {
	voting := &stubVoting{vote: domain.Vote{ID: "v1", PostID: "p1", AgentID: "voter-1", Value: 1}}
	srv := voteServer(t, voting)

	w := postVote(t, srv, `{"value":1}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	var got struct {
		Message string `json:"message"`
		Value   int    `json:"value"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	if got.Message != "Vote recorded" || got.Value != 1 {
		t.Fatalf("body = %+v", got)
	}

	if voting.postID != "p1" || voting.agentID != "voter-1" || voting.value != 1 {
		t.Fatalf("service called with post=%s agent=%s value=%d",
			voting.postID, voting.agentID, voting.value)
	}
}

func TestVoteFlipMessage(t *testing.T) {
	voting := &stubVoting{
		vote:    domain.Vote{ID: "v1", PostID: "p1", AgentID: "voter-1", Value: -1},
		flipped: true,
	}
	srv := voteServer(t, voting)

	w := postVote(t, srv, `{"value":-1}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	var got struct {
		Message string `json:"message"`
		Value   int    `json:"value"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Message != "Vote changed" || got.Value != -1 {
		t.Fatalf("body = %+v", got)
	}
}

func TestVoteErrorMapping(t *testing.T) {
	voting := &stubVoting{err: fmt.Errorf("voting: post p1: %w", domain.ErrSelfVote)}
	srv := voteServer(t, voting)

	w := postVote(t, srv, `{"value":1}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestVoteRequiresAgent(t *testing.T) {
	srv := voteServer(t, &stubVoting{})

	r := httptest.NewRequest(http.MethodPost, "/api/posts/p1/votes", strings.NewReader(`{"value":1}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
