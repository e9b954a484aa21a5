package bus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/xferterm/internal/common/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      "error",
		Format:     "json",
		OutputPath: "stderr",
	})
	require.NoError(t, err)
	return log
}

func receive(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func TestMemoryEventBusPublishSubscribe(t *testing.T) {
	b := NewMemoryEventBus(newTestLogger(t))
	defer b.Close()
	require.True(t, b.IsConnected())

	received := make(chan *Event, 1)
	sub, err := b.Subscribe("transfer.session.started", func(ctx context.Context, e *Event) error {
		received <- e
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sub.IsValid())

	event := NewEvent("transfer.session.started", "xferterm", map[string]interface{}{"direction": "download"})
	require.NoError(t, b.Publish(context.Background(), "transfer.session.started", event))

	got := receive(t, received)
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, "download", got.Data["direction"])
}

func TestMemoryEventBusWildcards(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"transfer.session.started", "transfer.session.started", true},
		{"transfer.session.started", "transfer.session.ended", false},
		{"transfer.session.*", "transfer.session.ended", true},
		{"transfer.*", "transfer.session.ended", false},
		{"transfer.>", "transfer.session.ended", true},
		{"transfer.>", "transfer", false},
		{"*.session.*", "transfer.session.started", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.subject, func(t *testing.T) {
			assert.Equal(t, tt.want, matches(tt.subject, tt.pattern, compilePattern(tt.pattern)))
		})
	}
}

func TestMemoryEventBusMultiTokenDelivery(t *testing.T) {
	b := NewMemoryEventBus(newTestLogger(t))
	defer b.Close()

	received := make(chan *Event, 2)
	_, err := b.Subscribe("transfer.>", func(ctx context.Context, e *Event) error {
		received <- e
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, "transfer.session.started", NewEvent("started", "test", nil)))
	require.NoError(t, b.Publish(ctx, "transfer.session.ended", NewEvent("ended", "test", nil)))

	types := map[string]bool{}
	types[receive(t, received).Type] = true
	types[receive(t, received).Type] = true
	assert.Equal(t, map[string]bool{"started": true, "ended": true}, types)
}

func TestMemoryEventBusUnsubscribe(t *testing.T) {
	b := NewMemoryEventBus(newTestLogger(t))
	defer b.Close()

	var count int32
	sub, err := b.Subscribe("a.b", func(ctx context.Context, e *Event) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, sub.Unsubscribe())
	assert.False(t, sub.IsValid())

	require.NoError(t, b.Publish(context.Background(), "a.b", NewEvent("x", "test", nil)))
	b.Close()
	assert.Zero(t, atomic.LoadInt32(&count))
}

func TestMemoryEventBusCloseWaitsForHandlers(t *testing.T) {
	b := NewMemoryEventBus(newTestLogger(t))

	var done int32
	_, err := b.Subscribe("slow", func(ctx context.Context, e *Event) error {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&done, 1)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), "slow", NewEvent("x", "test", nil)))

	b.Close()
	assert.Equal(t, int32(1), atomic.LoadInt32(&done))
	assert.False(t, b.IsConnected())

	assert.ErrorIs(t, b.Publish(context.Background(), "slow", NewEvent("x", "test", nil)), ErrClosed)
	_, err = b.Subscribe("slow", func(context.Context, *Event) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
	b.Close()
}
