// Package notify tells the user interface and other observers about
// transfer sessions starting and ending.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kandev/xferterm/internal/common/logger"
	"github.com/kandev/xferterm/internal/events/bus"
	"github.com/kandev/xferterm/internal/history"
	"github.com/kandev/xferterm/internal/transfer"
)

// TransferSuffix is appended to the window title while a session runs.
const TransferSuffix = " (X/Y/ZModem transfer)"

// Event types published on the bus.
const (
	EventSessionStarted = "transfer.session.started"
	EventSessionEnded   = "transfer.session.ended"
)

const publishTimeout = 2 * time.Second

// Title drives the terminal window title with OSC 0 sequences.
type Title struct {
	w    io.Writer
	base string
}

// NewTitle writes title sequences to w. base is the idle title.
func NewTitle(w io.Writer, base string) *Title {
	return &Title{w: w, base: sanitizeTitle(base)}
}

// Set writes an OSC 0 sequence setting the window title.
func (t *Title) Set(title string) {
	_, _ = fmt.Fprintf(t.w, "\x1b]0;%s\x07", sanitizeTitle(title))
}

func (t *Title) SessionStarted(transfer.SessionInfo) {
	t.Set(t.base + TransferSuffix)
}

func (t *Title) SessionEnded(transfer.SessionInfo) {
	t.Set(t.base)
}

// sanitizeTitle drops control characters, which would end the sequence early.
func sanitizeTitle(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// BusPublisher publishes session lifecycle events.
type BusPublisher struct {
	bus     bus.EventBus
	subject string
	source  string
	logger  *logger.Logger
}

// NewBusPublisher publishes to subject+".started" and subject+".ended".
func NewBusPublisher(eb bus.EventBus, subject, source string, log *logger.Logger) *BusPublisher {
	return &BusPublisher{
		bus:     eb,
		subject: subject,
		source:  source,
		logger:  log.WithFields(zap.String("component", "notify")),
	}
}

func (p *BusPublisher) SessionStarted(info transfer.SessionInfo) {
	p.publish(p.subject+".started", EventSessionStarted, info)
}

func (p *BusPublisher) SessionEnded(info transfer.SessionInfo) {
	p.publish(p.subject+".ended", EventSessionEnded, info)
}

func (p *BusPublisher) publish(subject, eventType string, info transfer.SessionInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.bus.Publish(ctx, subject, bus.NewEvent(eventType, p.source, sessionData(info))); err != nil {
		p.logger.Warn("Failed to publish session event",
			zap.String("subject", subject),
			zap.String("session_id", info.ID),
			zap.Error(err))
	}
}

func sessionData(info transfer.SessionInfo) map[string]interface{} {
	data := map[string]interface{}{
		"session_id": info.ID,
		"direction":  string(info.Direction),
		"program":    info.Program,
		"args":       info.Command.ArgString(),
		"started_at": info.StartedAt.UTC().Format(time.RFC3339Nano),
	}
	if !info.EndedAt.IsZero() {
		data["ended_at"] = info.EndedAt.UTC().Format(time.RFC3339Nano)
		data["end_reason"] = string(info.EndReason)
		data["exit_code"] = info.ExitCode
		data["bytes_to_peer"] = info.BytesToPeer
		data["bytes_to_display"] = info.BytesToDisplay
		data["bytes_from_peer"] = info.BytesFromPeer
		if info.Err != nil {
			data["error"] = info.Err.Error()
		}
	}
	return data
}

// Recorder persists finished sessions.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// HistoryRecorder writes every ended session to a Recorder.
type HistoryRecorder struct {
	store  Recorder
	logger *logger.Logger
}

func NewHistoryRecorder(store Recorder, log *logger.Logger) *HistoryRecorder {
	return &HistoryRecorder{
		store:  store,
		logger: log.WithFields(zap.String("component", "notify")),
	}
}

func (h *HistoryRecorder) SessionStarted(transfer.SessionInfo) {}

func (h *HistoryRecorder) SessionEnded(info transfer.SessionInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := h.store.Record(ctx, Entry(info)); err != nil {
		h.logger.Warn("Failed to record transfer history",
			zap.String("session_id", info.ID),
			zap.Error(err))
	}
}

// Entry converts a finished session into its history row.
func Entry(info transfer.SessionInfo) history.Entry {
	e := history.Entry{
		ID:             info.ID,
		Direction:      string(info.Direction),
		Program:        info.Program,
		Args:           info.Command.ArgString(),
		StartedAt:      info.StartedAt.UTC(),
		EndedAt:        info.EndedAt.UTC(),
		EndReason:      string(info.EndReason),
		ExitCode:       info.ExitCode,
		BytesToPeer:    info.BytesToPeer,
		BytesToDisplay: info.BytesToDisplay,
		BytesFromPeer:  info.BytesFromPeer,
	}
	if info.Err != nil {
		e.Error = info.Err.Error()
	}
	return e
}

// Multi fans out to several notifiers in order. Nil entries are skipped.
type Multi []transfer.Notifier

func (m Multi) SessionStarted(info transfer.SessionInfo) {
	for _, n := range m {
		if n != nil {
			n.SessionStarted(info)
		}
	}
}

func (m Multi) SessionEnded(info transfer.SessionInfo) {
	for _, n := range m {
		if n != nil {
			n.SessionEnded(info)
		}
	}
}
