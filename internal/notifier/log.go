package notifier

import (
	"context"

	"github.com/charmbracelet/log"
)

// LogNotifier writes notifications to the application log. It is the default backend.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (LogNotifier) Notify(_ context.Context, userID string, eventType EventType, payload map[string]any) error {
	log.Info("Notification", "user", userID, "type", eventType, "payload", payload)
	return nil
}
