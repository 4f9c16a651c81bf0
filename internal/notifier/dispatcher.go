package notifier

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/clock"
	"github.com/mauv0809/courtmatch/internal/metrics"
)

var _ Notifier = (*Dispatcher)(nil)

const deliveryTimeout = 10 * time.Second

// Dispatcher queues notifications and delivers them to a backend from a single
// background worker, so a slow provider never blocks a request.
type Dispatcher struct {
	backend Notifier
	metrics metrics.Metrics
	clock   clock.Clock
	queue   chan Event
}

// NewDispatcher creates a Dispatcher with a queue of the given size.
func NewDispatcher(backend Notifier, m metrics.Metrics, clk clock.Clock, size int) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		backend: backend,
		metrics: m,
		clock:   clk,
		queue:   make(chan Event, size),
	}
}

// Notify enqueues the notification. When the queue is full the notification is dropped.
func (d *Dispatcher) Notify(_ context.Context, userID string, eventType EventType, payload map[string]any) error {
	event := Event{UserID: userID, Type: eventType, Payload: payload, OccurredAt: d.clock.Now()}
	select {
	case d.queue <- event:
	default:
		d.metrics.IncNotifFailed()
		log.Warn("Notification queue full, dropping notification", "user", userID, "type", eventType)
	}
	return nil
}

// Run delivers queued notifications until ctx is cancelled, then drains what is left.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info("Starting notification dispatcher", "queue_size", cap(d.queue))
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-ctx.Done():
			d.drain()
			log.Info("Notification dispatcher stopped")
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := d.backend.Notify(ctx, event.UserID, event.Type, event.Payload); err != nil {
		d.metrics.IncNotifFailed()
		log.Error("Failed to deliver notification", "error", err, "user", event.UserID, "type", event.Type)
		return
	}
	d.metrics.IncNotifSent()
	log.Debug("Delivered notification", "user", event.UserID, "type", event.Type)
}
