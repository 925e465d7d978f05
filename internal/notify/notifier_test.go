package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubSender struct {
	name   string
	err    error
	events []Event
}

func (s *stubSender) Send(_ context.Context, event Event, _, _ string) error {
	s.events = append(s.events, event)
	return s.err
}

func (s *stubSender) Name() string { return s.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnnounceFiltersByAllowedEvents(t *testing.T) {
	s := &stubSender{name: "stub"}
	n := NewNotifier([]Sender{s}, []string{"market_resolved"}, discardLogger())
	ctx := context.Background()

	if err := n.Announce(ctx, EventMarketResolved, "t", "m"); err != nil {
		t.Fatalf("Announce: %v", err)
	}
	if err := n.Announce(ctx, EventMarketCancelled, "t", "m"); err != nil {
		t.Fatalf("Announce filtered: %v", err)
	}

	if len(s.events) != 1 || s.events[0] != EventMarketResolved {
		t.Fatalf("delivered events = %v", s.events)
	}
}

func TestAnnounceEmptyAllowListPassesEverything(t *testing.T) {
	s := &stubSender{name: "stub"}
	n := NewNotifier([]Sender{s}, nil, discardLogger())

	if err := n.Announce(context.Background(), EventMarketCancelled, "t", "m"); err != nil {
		t.Fatalf("Announce: %v", err)
	}
	if len(s.events) != 1 {
		t.Fatalf("delivered events = %v", s.events)
	}
}

func TestAnnounceContinuesPastFailingSender(t *testing.T) {
	boom := errors.New("webhook down")
	bad := &stubSender{name: "bad", err: boom}
	good := &stubSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Announce(context.Background(), EventMarketResolved, "t", "m")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if len(good.events) != 1 {
		t.Fatal("healthy sender skipped after failure")
	}
}

func TestDiscordSenderPayload(t *testing.T) {
	var got struct {
		Embeds []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Color       int    `json:"color"`
			Footer      struct {
				Text string `json:"text"`
			} `json:"footer"`
		} `json:"embeds"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscordSender(srv.URL)
	if err := d.Send(context.Background(), EventMarketResolved, "Market resolved: yes", "Q?"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %+v", got.Embeds)
	}
	e := got.Embeds[0]
	if e.Title != "Market resolved: yes" || e.Description != "Q?" {
		t.Fatalf("embed = %+v", e)
	}
	if e.Color != colorResolved {
		t.Fatalf("color = %#x, want %#x", e.Color, colorResolved)
	}
	if !strings.Contains(e.Footer.Text, string(EventMarketResolved)) {
		t.Fatalf("footer = %q", e.Footer.Text)
	}
}

func TestDiscordSenderRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad webhook", http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := NewDiscordSender(srv.URL)
	err := d.Send(context.Background(), EventMarketResolved, "t", "m")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v, want status 401 surfaced", err)
	}
}

func TestTelegramSenderPayload(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegramSender("123:abc", "-100")
	tg.baseURL = srv.URL
	if err := tg.Send(context.Background(), EventMarketCancelled, "Market cancelled", "1 < 2"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if path != "/bot123:abc/sendMessage" {
		t.Fatalf("path = %q", path)
	}
	if got["chat_id"] != "-100" || got["parse_mode"] != "HTML" {
		t.Fatalf("payload = %v", got)
	}
	if !strings.Contains(got["text"], "<b>Market cancelled</b>") {
		t.Fatalf("text = %q", got["text"])
	}
	// HTML metacharacters in the body must be escaped.
	if !strings.Contains(got["text"], "1 &lt; 2") {
		t.Fatalf("text = %q, body not escaped", got["text"])
	}
}
