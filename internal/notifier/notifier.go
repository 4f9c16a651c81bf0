package notifier

import (
	"context"
	"time"
)

// EventType identifies the business event a notification is about.
type EventType string

const (
	EventApplicationReceived   EventType = "application_received"
	EventApplicationConfirmed  EventType = "application_confirmed"
	EventApplicationWaitlisted EventType = "application_waitlisted"
	EventApplicationRejected   EventType = "application_rejected"
	EventApplicationPromoted   EventType = "application_promoted"
	EventApplicationExpired    EventType = "application_expired"
	EventMatchConfirmed        EventType = "match_confirmed"
	EventMatchReopened         EventType = "match_reopened"
	EventMatchCancelled        EventType = "match_cancelled"
	EventMatchForceCancelled   EventType = "match_force_cancelled"
	EventResultReported        EventType = "result_reported"
	EventResultDisputed        EventType = "result_disputed"
	EventDisputeResolved       EventType = "dispute_resolved"
)

// Event is a single notification addressed to one user.
type Event struct {
	UserID     string         `json:"user_id" msgpack:"user_id"`
	Type       EventType      `json:"type" msgpack:"type"`
	Payload    map[string]any `json:"payload" msgpack:"payload"`
	OccurredAt time.Time      `json:"occurred_at" msgpack:"occurred_at"`
}

// Notifier delivers notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
// Delivery is best effort: callers notify after their transaction committed and never
// roll back because of a notification failure.
type Notifier interface {
	Notify(ctx context.Context, userID string, eventType EventType, payload map[string]any) error
}
