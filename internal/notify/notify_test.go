package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/xferterm/internal/common/logger"
	"github.com/kandev/xferterm/internal/events/bus"
	"github.com/kandev/xferterm/internal/history"
	"github.com/kandev/xferterm/internal/transfer"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "json", OutputPath: "stderr"})
	require.NoError(t, err)
	return log
}

func endedSession() transfer.SessionInfo {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return transfer.SessionInfo{
		ID:        "s-1",
		Direction: transfer.Upload,
		Program:   "/usr/bin/sz",
		Command:   transfer.Command{Program: "sz", Options: "-b -e", Files: []string{"a b.txt"}},
		StartedAt: start,
		EndedAt:   start.Add(2 * time.Second),
		EndReason: transfer.EndExited,
		ExitCode:  0,

		BytesToPeer:    10,
		BytesToDisplay: 20,
		BytesFromPeer:  30,
	}
}

func TestTitle(t *testing.T) {
	var out bytes.Buffer
	title := NewTitle(&out, "host:23")

	title.SessionStarted(transfer.SessionInfo{})
	assert.Equal(t, "\x1b]0;host:23 (X/Y/ZModem transfer)\x07", out.String())

	out.Reset()
	title.SessionEnded(transfer.SessionInfo{})
	assert.Equal(t, "\x1b]0;host:23\x07", out.String())
}

func TestTitleDropsControlCharacters(t *testing.T) {
	var out bytes.Buffer
	NewTitle(&out, "").Set("evil\x07\x1b]0;x")
	assert.Equal(t, "\x1b]0;evil]0;x\x07", out.String())
}

func TestBusPublisher(t *testing.T) {
	eb := bus.NewMemoryEventBus(newTestLogger(t))
	defer eb.Close()

	received := make(chan *bus.Event, 2)
	_, err := eb.Subscribe("transfer.session.>", func(ctx context.Context, e *bus.Event) error {
		received <- e
		return nil
	})
	require.NoError(t, err)

	p := NewBusPublisher(eb, "transfer.session", "xferterm-test", newTestLogger(t))
	info := endedSession()
	started := info
	started.EndedAt = time.Time{}
	p.SessionStarted(started)
	p.SessionEnded(info)

	got := map[string]*bus.Event{}
	for i := 0; i < 2; i++ {
		select {
		case e := <-received:
			got[e.Type] = e
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for session event")
		}
	}

	require.Contains(t, got, EventSessionStarted)
	require.Contains(t, got, EventSessionEnded)
	assert.Equal(t, "xferterm-test", got[EventSessionStarted].Source)
	assert.Equal(t, "s-1", got[EventSessionStarted].Data["session_id"])
	assert.NotContains(t, got[EventSessionStarted].Data, "end_reason")
	assert.Equal(t, "exited", got[EventSessionEnded].Data["end_reason"])
	assert.Equal(t, `-b -e "a b.txt"`, got[EventSessionEnded].Data["args"])
}

type fakeRecorder struct {
	entries []history.Entry
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, e history.Entry) error {
	f.entries = append(f.entries, e)
	return f.err
}

func TestHistoryRecorder(t *testing.T) {
	rec := &fakeRecorder{}
	h := NewHistoryRecorder(rec, newTestLogger(t))

	info := endedSession()
	info.Err = errors.New("exit status 1")
	h.SessionStarted(info)
	assert.Empty(t, rec.entries)

	h.SessionEnded(info)
	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, "s-1", e.ID)
	assert.Equal(t, "upload", e.Direction)
	assert.Equal(t, `-b -e "a b.txt"`, e.Args)
	assert.Equal(t, "exit status 1", e.Error)
	assert.Equal(t, 2*time.Second, e.Duration())
	assert.Equal(t, int64(30), e.BytesFromPeer)

	rec.err = errors.New("disk full")
	assert.NotPanics(t, func() { h.SessionEnded(info) })
}

type orderNotifier struct {
	name  string
	calls *[]string
}

func (o orderNotifier) SessionStarted(transfer.SessionInfo) { *o.calls = append(*o.calls, o.name+":start") }
func (o orderNotifier) SessionEnded(transfer.SessionInfo)   { *o.calls = append(*o.calls, o.name+":end") }

func TestMultiFansOutInOrder(t *testing.T) {
	var calls []string
	m := Multi{orderNotifier{"a", &calls}, nil, orderNotifier{"b", &calls}}

	m.SessionStarted(transfer.SessionInfo{})
	m.SessionEnded(transfer.SessionInfo{})
	assert.Equal(t, []string{"a:start", "b:start", "a:end", "b:end"}, calls)
}
