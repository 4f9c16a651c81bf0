package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/clock"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/vmihailenco/msgpack/v5"
)

// publisher is the part of a pubsub topic we use. This allows for easy mocking in tests.
type publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

type topicPublisher struct {
	topic *pubsub.Topic
}

func (p *topicPublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	return result.Get(ctx)
}

var _ notifier.Notifier = (*Notifier)(nil)

// Notifier publishes notifications as msgpack-encoded messages to a Pub/Sub topic,
// leaving delivery to downstream subscribers.
type Notifier struct {
	pub      publisher
	clock    clock.Clock
	teardown func()
}

// New creates a Notifier publishing to topic in the given project.
func New(ctx context.Context, projectID, topic string, clk clock.Clock) (*Notifier, error) {
	c, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	t := c.Topic(topic)
	return &Notifier{
		pub:   &topicPublisher{topic: t},
		clock: clk,
		teardown: func() {
			t.Stop()
			c.Close()
		},
	}, nil
}

// NewWithPublisher creates a Notifier with a specific publisher. Useful for tests.
func NewWithPublisher(pub publisher, clk clock.Clock) *Notifier {
	return &Notifier{pub: pub, clock: clk, teardown: func() {}}
}

// Notify encodes the event with msgpack and publishes it.
func (n *Notifier) Notify(ctx context.Context, userID string, eventType notifier.EventType, payload map[string]any) error {
	event := notifier.Event{UserID: userID, Type: eventType, Payload: payload, OccurredAt: n.clock.Now()}
	data, err := msgpack.Marshal(event)
	if err != nil {
		log.Error("MessagePack marshal error", "error", err)
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	serverID, err := n.pub.Publish(ctx, data, map[string]string{"type": string(eventType)})
	if err != nil {
		log.Error("Failed to publish message", "error", err, "type", eventType)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	log.Debug("Published notification", "serverID", serverID, "type", eventType)
	return nil
}

// Decode unmarshals a published message back into an Event.
func Decode(data []byte) (notifier.Event, error) {
	var event notifier.Event
	if err := msgpack.Unmarshal(data, &event); err != nil {
		log.Error("MessagePack unmarshal error", "error", err)
		return notifier.Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

// Close stops the topic and releases the client.
func (n *Notifier) Close() {
	n.teardown()
}
