package notify

import (
	"context"
	"log/slog"

	"github.com/Dosada05/quiz-tournament/live"
)

// Notifier is the seam to the messaging transport that reaches individual
// players and the administrative channel. Implementations are best-effort:
// the engine logs delivery failures and keeps going.
type Notifier interface {
	// SendMessage delivers text to one player; choices, when non-empty,
	// are rendered by the transport as tappable answer options.
	SendMessage(ctx context.Context, playerID int, text string, choices []string) error
	SendAdminNotice(ctx context.Context, text string) error
}

// LogNotifier writes every outbound message to the structured log. Used on
// its own in development and composed under Multi in production.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendMessage(ctx context.Context, playerID int, text string, choices []string) error {
	n.logger.Info("player message",
		slog.Int("player_id", playerID),
		slog.String("text", text),
		slog.Int("choices", len(choices)))
	return nil
}

func (n *LogNotifier) SendAdminNotice(ctx context.Context, text string) error {
	n.logger.Info("admin notice", slog.String("text", text))
	return nil
}

// HubNotifier mirrors admin notices onto the live dashboard hub. Player
// messages are not mirrored; they belong to the player's own transport.
type HubNotifier struct {
	hub *live.Hub
}

func NewHubNotifier(hub *live.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) SendMessage(ctx context.Context, playerID int, text string, choices []string) error {
	return nil
}

func (n *HubNotifier) SendAdminNotice(ctx context.Context, text string) error {
	n.hub.BroadcastEvent(live.Event{Type: live.EventAdminNotice, Payload: text})
	return nil
}

// Multi fans every notification out to all wrapped notifiers, returning the
// first error after trying each one.
type Multi struct {
	notifiers []Notifier
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) SendMessage(ctx context.Context, playerID int, text string, choices []string) error {
	var firstErr error
	for _, n := range m.notifiers {
		if err := n.SendMessage(ctx, playerID, text, choices); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Multi) SendAdminNotice(ctx context.Context, text string) error {
	var firstErr error
	for _, n := range m.notifiers {
		if err := n.SendAdminNotice(ctx, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
