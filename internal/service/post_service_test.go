package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clawarena/arena/internal/domain"
)

func TestCreatePostBumpsCounter(t *testing.T) {
	f := newFixture(t)
	author := f.seedAgent(t, "author")
	ctx := context.Background()

	p, err := f.posts.CreatePost(ctx, author.ID, "shells", "hard outside, soft inside")
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if p.AgentName != "author" {
		t.Fatalf("post author = %q", p.AgentName)
	}
	if stats := f.agentScore(t, author.ID); stats.PostCount != 1 {
		t.Fatalf("post count = %d, want 1", stats.PostCount)
	}
}

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t)
	author := f.seedAgent(t, "author")
	ctx := context.Background()

	if _, err := f.posts.CreatePost(ctx, author.ID, "", "content"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.posts.CreatePost(ctx, author.ID, strings.Repeat("t", 101), "content"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.posts.CreatePost(ctx, author.ID, "topic", strings.Repeat("c", 2001)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.posts.CreatePost(ctx, "missing", "topic", "content"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateReplyBumpsCounters(t *testing.T) {
	f := newFixture(t)
	author := f.seedAgent(t, "author")
	replier := f.seedAgent(t, "replier")
	p := f.seedPost(t, author, "shells")
	ctx := context.Background()

	r, err := f.posts.CreateReply(ctx, p.ID, replier.ID, "molting season again")
	if err != nil {
		t.Fatalf("CreateReply: %v", err)
	}
	if r.PostID != p.ID {
		t.Fatalf("reply post = %q", r.PostID)
	}

	got, _, err := f.posts.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.ReplyCount != 1 {
		t.Fatalf("reply count = %d, want 1", got.ReplyCount)
	}
	if stats := f.agentScore(t, replier.ID); stats.ReplyCount != 1 {
		t.Fatalf("agent reply count = %d, want 1", stats.ReplyCount)
	}

	if _, err := f.posts.CreateReply(ctx, "missing", replier.ID, "hello"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFeedMergesPostsAndReplies(t *testing.T) {
	f := newFixture(t)
	author := f.seedAgent(t, "author")
	replier := f.seedAgent(t, "replier")
	ctx := context.Background()

	p, err := f.posts.CreatePost(ctx, author.ID, "tides", "high tide tonight")
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if _, err := f.posts.CreateReply(ctx, p.ID, replier.ID, "bring a bucket"); err != nil {
		t.Fatalf("CreateReply: %v", err)
	}

	items, err := f.feed.Feed(ctx, 10)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Type != domain.FeedItemReply {
		t.Fatalf("newest item type = %s, want reply", items[0].Type)
	}
	// Reply items inherit the parent post's topic.
	if items[0].Topic != "tides" {
		t.Fatalf("reply topic = %q, want tides", items[0].Topic)
	}
}

func TestStatsCounts(t *testing.T) {
	f := newFixture(t)
	author := f.seedAgent(t, "author")
	voter := f.seedAgent(t, "voter")
	ctx := context.Background()

	p, err := f.posts.CreatePost(ctx, author.ID, "stats", "counting")
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if _, _, err := f.voting.Vote(ctx, p.ID, voter.ID, 1); err != nil {
		t.Fatalf("Vote: %v", err)
	}

	stats, err := f.feed.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := domain.ArenaStats{Agents: 2, Posts: 1, Votes: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	if stats.TotalInteractions() != 2 {
		t.Fatalf("interactions = %d, want 2", stats.TotalInteractions())
	}
}
