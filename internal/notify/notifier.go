// Package notify announces arena lifecycle events to operator channels.
// Settlement outcomes fan out to every configured webhook sender; the
// event allow-list from the config decides which announcements are worth
// an operator ping.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event identifies the kind of arena announcement being delivered.
type Event string

const (
	EventMarketResolved  Event = "market_resolved"
	EventMarketCancelled Event = "market_cancelled"
)

// Sender delivers one announcement to a single operator channel.
type Sender interface {
	Send(ctx context.Context, event Event, title, message string) error
	// Name identifies the channel in logs (e.g. "telegram").
	Name() string
}

// Notifier fans announcements out to the configured senders, filtered by
// the allowed event set. An empty set allows every event.
type Notifier struct {
	senders []Sender
	allowed map[Event]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. events
// holds the allow-list as configured (raw strings from TOML).
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[Event]bool, len(events))
	for _, e := range events {
		allowed[Event(strings.TrimSpace(e))] = true
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Announce delivers the event to every sender. A sender failure does not
// stop delivery to the rest; all failures come back as one joined error.
// Events outside the allow-list are dropped.
func (n *Notifier) Announce(ctx context.Context, event Event, title, message string) error {
	if len(n.allowed) > 0 && !n.allowed[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", string(event)),
		)
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, event, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", string(event)),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "announcement sent",
			slog.String("sender", s.Name()),
			slog.String("event", string(event)),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: announce %s: %w", event, errors.Join(errs...))
	}
	return nil
}
