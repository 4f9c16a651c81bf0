package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/courtmatch/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	data  [][]byte
	attrs []map[string]string
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, data []byte, attrs map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.data = append(f.data, data)
	f.attrs = append(f.attrs, attrs)
	return "server-1", nil
}

func TestNotify_PublishesDecodableEvent(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pub := &fakePublisher{}
	n := NewWithPublisher(pub, clockwork.NewFakeClockAt(at))

	err := n.Notify(context.Background(), "u1", notifier.EventResultReported, map[string]any{"score": "6-4 6-3"})
	require.NoError(t, err)
	require.Len(t, pub.data, 1)
	assert.Equal(t, "result_reported", pub.attrs[0]["type"])

	event, err := Decode(pub.data[0])
	require.NoError(t, err)
	assert.Equal(t, "u1", event.UserID)
	assert.Equal(t, notifier.EventResultReported, event.Type)
	assert.Equal(t, "6-4 6-3", event.Payload["score"])
	assert.True(t, event.OccurredAt.Equal(at))
}

func TestNotify_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("unavailable")}
	n := NewWithPublisher(pub, clockwork.NewFakeClock())

	err := n.Notify(context.Background(), "u1", notifier.EventMatchCancelled, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unavailable")
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte{0xc1})
	assert.Error(t, err)
}
