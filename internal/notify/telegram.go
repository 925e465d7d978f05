package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSender delivers announcements to a Telegram chat through the
// Bot API sendMessage endpoint.
type TelegramSender struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and
// chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		baseURL: telegramAPIBase,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: webhookTimeout},
	}
}

// Send posts the announcement as an HTML-formatted message, title in
// bold. HTML parse mode sidesteps MarkdownV2's escaping rules for
// arbitrary market questions.
func (t *TelegramSender) Send(ctx context.Context, event Event, title, message string) error {
	text := fmt.Sprintf("<b>%s</b>\n%s\n\n<i>%s</i>",
		html.EscapeString(title), html.EscapeString(message), string(event))

	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	if err := postJSON(ctx, t.client, url, payload); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
