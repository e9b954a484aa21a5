// Package terminal routes bytes between the local screen and keyboard, the
// remote connection and the transfer manager.
package terminal

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kandev/xferterm/internal/backend"
	"github.com/kandev/xferterm/internal/common/config"
	"github.com/kandev/xferterm/internal/common/logger"
	"github.com/kandev/xferterm/internal/transfer"
)

// Keys recognised after the escape byte.
const (
	keyDownload = 'd'
	keyUpload   = 'u'
	keyAbort    = 'a'
	keyQuit     = 'q'
	keyHelp     = '?'
)

const (
	uploadPrompt = "\r\nUpload files: "
	maxLineLen   = 4096
)

type inputMode int

const (
	modeNormal inputMode = iota
	modeEscape
	modeFileList
)

// Terminal is the context object for one connection: it owns the
// transfer session slot. All methods must be called from the goroutine
// that drives the terminal loop.
type Terminal struct {
	conn    backend.Conn
	screen  io.Writer
	manager *transfer.Manager
	escape  byte
	logger  *logger.Logger

	mode inputMode
	line []byte
}

// New builds a Terminal writing to screen. notifier may be nil.
func New(conn backend.Conn, screen io.Writer, cfg config.TransferConfig, escape byte,
	notifier transfer.Notifier, log *logger.Logger) *Terminal {
	t := &Terminal{
		conn:   conn,
		screen: screen,
		escape: escape,
		logger: log.WithFields(zap.String("component", "terminal")),
	}
	t.manager = transfer.NewManager(cfg, t, notifier, log)
	return t
}

// Manager exposes the transfer session slot.
func (t *Terminal) Manager() *transfer.Manager {
	return t.manager
}

// Deliver shows helper output on the screen.
func (t *Terminal) Deliver(p []byte) {
	t.write(p)
}

// FromPeer handles bytes received from the remote connection. While a
// session runs they belong to the helper. Otherwise they are shown, and a
// completed download invitation starts the receiver with the rest of the
// chunk as its first input.
func (t *Terminal) FromPeer(p []byte) {
	if t.manager.Active() {
		t.manager.FeedInput(p)
		return
	}

	for i, c := range p {
		if !t.manager.Autodetect(c) {
			continue
		}
		t.write(p[:i+1])
		t.logger.Info("download invitation detected")
		if !t.startDownload() {
			t.FromPeer(p[i+1:])
			return
		}
		t.manager.FeedInput(p[i+1:])
		return
	}
	t.write(p)
}

// FromUser handles keyboard bytes. It reports true when the user asked to
// quit. The error is a failure to send to the remote connection.
func (t *Terminal) FromUser(p []byte) (bool, error) {
	var out []byte
	flush := func() error {
		if len(out) == 0 {
			return nil
		}
		err := t.conn.Send(out)
		out = out[:0]
		return err
	}

	for _, c := range p {
		switch t.mode {
		case modeFileList:
			t.fileListKey(c)

		case modeEscape:
			t.mode = modeNormal
			switch c {
			case t.escape:
				if !t.manager.Active() {
					out = append(out, c)
				}
			case keyDownload:
				t.startDownload()
			case keyUpload:
				if t.manager.Active() {
					t.message(transfer.ErrSessionActive.Error())
					continue
				}
				t.mode = modeFileList
				t.line = t.line[:0]
				t.write([]byte(uploadPrompt))
			case keyAbort:
				if t.manager.Active() {
					t.manager.Abort()
					t.message("transfer aborted")
				}
			case keyQuit:
				if err := flush(); err != nil {
					return true, err
				}
				t.manager.Abort()
				return true, nil
			case keyHelp:
				t.help()
			}

		default:
			if c == t.escape {
				t.mode = modeEscape
				continue
			}
			if t.manager.Active() {
				continue
			}
			out = append(out, c)
		}
	}
	return false, flush()
}

// Tick runs one transfer cycle and reports whether anything moved.
func (t *Terminal) Tick() bool {
	return t.manager.Handle(t.conn)
}

// Close aborts any running session.
func (t *Terminal) Close() {
	t.manager.Abort()
}

func (t *Terminal) fileListKey(c byte) {
	switch c {
	case '\r', '\n':
		t.mode = modeNormal
		t.write([]byte("\r\n"))
		files := transfer.ParseFileList(string(t.line))
		t.line = t.line[:0]
		t.startUpload(files)
	case 0x7f, '\b':
		if len(t.line) > 0 {
			t.line = t.line[:len(t.line)-1]
			t.write([]byte("\b \b"))
		}
	case 0x03, t.escape:
		t.mode = modeNormal
		t.line = t.line[:0]
		t.message("upload cancelled")
	default:
		if c < 0x20 || len(t.line) >= maxLineLen {
			return
		}
		t.line = append(t.line, c)
		t.write([]byte{c})
	}
}

func (t *Terminal) startDownload() bool {
	return t.report(t.manager.StartDownload())
}

func (t *Terminal) startUpload(files []string) bool {
	return t.report(t.manager.StartUpload(files))
}

// report shows a start failure to the user and says whether the start
// succeeded.
func (t *Terminal) report(err error) bool {
	if err == nil {
		return true
	}
	var spawnErr *transfer.SpawnError
	if errors.As(err, &spawnErr) {
		t.logger.Debug("helper did not start", zap.String("program", spawnErr.Program))
	}
	t.message(err.Error())
	return false
}

func (t *Terminal) help() {
	esc := caret(t.escape)
	t.message(fmt.Sprintf("%s d: download  %s u: upload  %s a: abort  %s q: quit  %s %s: send %s",
		esc, esc, esc, esc, esc, esc, esc))
}

func (t *Terminal) message(msg string) {
	t.write([]byte("\r\n[xferterm] " + msg + "\r\n"))
}

func (t *Terminal) write(p []byte) {
	if len(p) == 0 {
		return
	}
	if _, err := t.screen.Write(p); err != nil {
		t.logger.Debug("screen write failed", zap.Error(err))
	}
}

func caret(b byte) string {
	switch {
	case b == 0x7f:
		return "^?"
	case b < 0x20:
		return "^" + string(rune(b+'@'))
	default:
		return string(rune(b))
	}
}
