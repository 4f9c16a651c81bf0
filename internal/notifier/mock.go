package notifier

import (
	"context"
	"sync"
)

var _ Notifier = (*Mock)(nil)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Call records
	NotifyCalls []Event

	// Spy for Notify; when set its error is returned.
	NotifyFunc func(ctx context.Context, userID string, eventType EventType, payload map[string]any) error
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Notify(ctx context.Context, userID string, eventType EventType, payload map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyCalls = append(m.NotifyCalls, Event{UserID: userID, Type: eventType, Payload: payload})
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, userID, eventType, payload)
	}
	return nil
}

// Events returns a copy of all recorded notifications.
func (m *Mock) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.NotifyCalls...)
}

// EventsOfType returns the recorded notifications of the given type.
func (m *Mock) EventsOfType(eventType EventType) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.NotifyCalls {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyCalls = nil
}
