package notifier

import (
	"context"

	"github.com/charmbracelet/log"
)

// Batch collects notifications inside a transaction so they can be sent once it committed.
type Batch struct {
	events []Event
}

// Add queues a notification for userID.
func (b *Batch) Add(userID string, eventType EventType, payload map[string]any) {
	if userID == "" {
		return
	}
	b.events = append(b.events, Event{UserID: userID, Type: eventType, Payload: payload})
}

// Len returns the number of queued notifications.
func (b *Batch) Len() int {
	return len(b.events)
}

// Events returns the queued notifications.
func (b *Batch) Events() []Event {
	return b.events
}

// Send delivers every queued notification. Failures are logged and never returned.
func (b *Batch) Send(ctx context.Context, n Notifier) {
	for _, e := range b.events {
		if err := n.Notify(ctx, e.UserID, e.Type, e.Payload); err != nil {
			log.Error("Failed to send notification", "error", err, "user", e.UserID, "type", e.Type)
		}
	}
	b.events = nil
}
