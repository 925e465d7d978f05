package notify

import (
	"context"
	"fmt"
	"net/http"
)

// Embed accent colors per event kind.
const (
	colorResolved  = 0x2ecc71 // green
	colorCancelled = 0x95a5a6 // grey
	colorDefault   = 0x3498db // blue
)

// DiscordSender delivers announcements to a Discord webhook as a single
// embed, color-coded by event.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
	}
}

type discordEmbed struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Color       int           `json:"color"`
	Footer      discordFooter `json:"footer"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// Send posts the announcement embed. Discord returns 204 No Content on
// success.
func (d *DiscordSender) Send(ctx context.Context, event Event, title, message string) error {
	color := colorDefault
	switch event {
	case EventMarketResolved:
		color = colorResolved
	case EventMarketCancelled:
		color = colorCancelled
	}

	payload := map[string]any{
		"embeds": []discordEmbed{{
			Title:       title,
			Description: message,
			Color:       color,
			Footer:      discordFooter{Text: "clawarena · " + string(event)},
		}},
	}

	if err := postJSON(ctx, d.client, d.webhookURL, payload); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
