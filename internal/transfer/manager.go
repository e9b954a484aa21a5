// Package transfer runs an external X/Y/ZMODEM helper alongside a live
// terminal connection.
//
// The Manager owns at most one helper at a time. Bytes from the remote peer
// are written to the helper's standard input, the helper's standard error
// is shown on the terminal display and its standard output is sent to the
// remote peer. Nothing here blocks waiting for the helper: the host calls
// Poll (or Handle) from its own loop and every output check is a readiness
// peek followed by a non-blocking read.
//
// A Manager is not safe for concurrent use. It belongs to the goroutine
// that drives the terminal.
package transfer

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kandev/xferterm/internal/backend"
	"github.com/kandev/xferterm/internal/common/config"
	"github.com/kandev/xferterm/internal/common/logger"
)

const (
	readBufferSize = 1024
	// reapTimeout bounds the wait for a helper after it has been killed.
	reapTimeout = 2 * time.Second
)

// Display receives helper output meant for the local terminal.
type Display interface {
	Deliver(p []byte)
}

// Backend is the connection to the remote peer.
type Backend interface {
	Send(p []byte) error
	Protocol() backend.Protocol
}

// Notifier is told about every session start and end.
type Notifier interface {
	SessionStarted(info SessionInfo)
	SessionEnded(info SessionInfo)
}

// EndReason says why a session ended.
type EndReason string

const (
	EndExited       EndReason = "exited"
	EndStreamClosed EndReason = "stream_closed"
	EndAborted      EndReason = "aborted"
)

// SessionInfo describes one helper run.
type SessionInfo struct {
	ID        string
	Direction Direction
	// Program is the resolved path that was launched.
	Program string
	Command Command

	StartedAt time.Time
	EndedAt   time.Time
	EndReason EndReason
	// ExitCode is -1 when the helper was killed or its status is unknown.
	ExitCode int
	Err      error

	BytesToPeer    int64
	BytesToDisplay int64
	BytesFromPeer  int64
}

// Duration is the session's wall-clock length, or the time so far while active.
func (s SessionInfo) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

type session struct {
	info              SessionInfo
	proc              *child
	remoteCommandSent bool
	// pending holds peer bytes the helper's input pipe had no room for.
	pending []byte
	log     *logger.Logger
}

// Manager is the per-terminal transfer session slot.
type Manager struct {
	cfg      config.TransferConfig
	display  Display
	notifier Notifier
	logger   *logger.Logger

	resolver *Resolver
	launcher *Launcher
	scanner  Scanner

	session *session
	buf     [readBufferSize]byte
}

// NewManager creates an idle Manager. notifier and log may be nil.
func NewManager(cfg config.TransferConfig, display Display, notifier Notifier, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Default()
	}
	return &Manager{
		cfg:      cfg,
		display:  display,
		notifier: notifier,
		logger:   log.WithFields(zap.String("component", "transfer")),
		resolver: NewResolver(""),
		launcher: NewLauncher(),
	}
}

// Active reports whether a helper is running.
func (m *Manager) Active() bool {
	return m.session != nil
}

// Session returns a snapshot of the running session, or nil when idle.
func (m *Manager) Session() *SessionInfo {
	if m.session == nil {
		return nil
	}
	info := m.session.info
	return &info
}

// StartDownload launches the configured receiver. The remote command, if
// enabled, is sent on the next Handle or RemoteInitiate call.
func (m *Manager) StartDownload() error {
	return m.start(Download, Command{
		Program: m.cfg.DownloadCommand,
		Options: m.cfg.DownloadOptions,
		Dir:     m.cfg.DownloadDir,
	})
}

// StartUpload launches the configured sender for files. An empty list is
// rejected without starting anything.
func (m *Manager) StartUpload(files []string) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	return m.start(Upload, Command{
		Program: m.cfg.UploadCommand,
		Options: m.cfg.UploadOptions,
		Files:   append([]string(nil), files...),
		Dir:     m.cfg.DownloadDir,
	})
}

func (m *Manager) start(dir Direction, cmd Command) error {
	if m.session != nil {
		return ErrSessionActive
	}

	program := m.resolver.Resolve(cmd.Program)
	proc, err := m.launcher.spawn(program, cmd)
	if err != nil {
		spawnErr := &SpawnError{Direction: dir, Program: program, Args: cmd.ArgString(), Err: err}
		m.logger.Warn("failed to start transfer helper",
			zap.String("direction", string(dir)),
			zap.String("program", program),
			zap.String("args", spawnErr.Args),
			zap.Error(err))
		return spawnErr
	}

	info := SessionInfo{
		ID:        uuid.New().String(),
		Direction: dir,
		Program:   program,
		Command:   cmd,
		StartedAt: time.Now().UTC(),
		ExitCode:  -1,
	}
	s := &session{
		info:              info,
		proc:              proc,
		remoteCommandSent: dir == Upload, // uploads have no remote trigger to send
		log:               m.logger.WithSessionID(info.ID),
	}
	m.session = s
	m.scanner.Reset()

	s.log.Info("transfer started",
		zap.String("direction", string(dir)),
		zap.String("program", program),
		zap.String("args", cmd.ArgString()),
		zap.String("dir", cmd.Dir),
		zap.Int("pid", proc.pid))

	if m.notifier != nil {
		m.notifier.SessionStarted(info)
	}
	return nil
}

// Handle is the host's per-cycle call: it sends the remote command when due
// and then polls the helper. It reports whether anything happened.
func (m *Manager) Handle(b Backend) bool {
	sent := m.RemoteInitiate(b)
	return m.Poll(b) || sent
}

// Abort tears down the running session whatever the helper is doing.
// It does nothing when idle.
func (m *Manager) Abort() {
	if m.session == nil {
		return
	}
	m.finish(nil, EndAborted, nil)
}

// FeedInput queues remote bytes for the helper and writes as much as its
// input pipe takes now. The rest is written by later Poll calls, in order.
// A failed write is only logged; the next Poll discovers that the helper
// has gone.
func (m *Manager) FeedInput(p []byte) {
	s := m.session
	if s == nil || s.proc.input == nil || len(p) == 0 {
		return
	}
	s.pending = append(s.pending, p...)
	m.flushInput(s)
}

// flushInput writes queued peer bytes without blocking and reports whether
// any were written.
func (m *Manager) flushInput(s *session) bool {
	if len(s.pending) == 0 || s.proc.input == nil {
		return false
	}
	n, err := nonBlockingWrite(s.proc.input, s.pending)
	s.info.BytesFromPeer += int64(n)
	if err != nil {
		s.log.Debug("dropping peer bytes", zap.Int("bytes", len(s.pending)-n), zap.Error(&WriteError{Err: err}))
		s.pending = nil
		return n > 0
	}
	if n == len(s.pending) {
		s.pending = s.pending[:0]
	} else {
		s.pending = append(s.pending[:0], s.pending[n:]...)
	}
	return n > 0
}

// Autodetect feeds one remote byte to the invitation scanner and reports
// whether it completed the invitation. It never fires while a session is
// active or when autodetection is disabled.
func (m *Manager) Autodetect(c byte) bool {
	if !m.cfg.Autodetect || m.session != nil {
		return false
	}
	return m.scanner.Feed(c)
}

// finish tears the session down: close the helper's input, give it the exit
// grace to leave, forward what is still buffered when a backend is given,
// close the outputs, then kill it if it is still running.
func (m *Manager) finish(b Backend, reason EndReason, cause error) {
	s := m.session
	if s == nil {
		return
	}
	p := s.proc

	if len(s.pending) > 0 {
		s.log.Debug("discarding unwritten peer bytes", zap.Int("bytes", len(s.pending)))
		s.pending = nil
	}
	if err := p.closeInput(); err != nil {
		s.log.Debug("close helper input", zap.Error(err))
	}
	exited := p.waitExit(m.cfg.ExitGrace)
	if b != nil {
		m.drainRemaining(b, s)
	}
	if err := p.closeOutputs(); err != nil {
		s.log.Debug("close helper outputs", zap.Error(err))
	}
	if !exited && p.alive() {
		s.log.Debug("helper still running after grace period, killing", zap.Int("pid", p.pid))
		if err := p.terminate(); err != nil {
			s.log.Warn("failed to kill transfer helper", zap.Int("pid", p.pid), zap.Error(err))
		}
		if !p.waitExit(reapTimeout) {
			s.log.Warn("transfer helper did not exit after kill", zap.Int("pid", p.pid))
		}
	}

	info := s.info
	info.EndedAt = time.Now().UTC()
	info.EndReason = reason
	info.Err = cause
	if !p.alive() {
		info.ExitCode = p.exitCode
	}
	m.session = nil

	s.log.Info("transfer ended",
		zap.String("reason", string(reason)),
		zap.Int("exit_code", info.ExitCode),
		zap.Int64("bytes_to_peer", info.BytesToPeer),
		zap.Int64("bytes_to_display", info.BytesToDisplay),
		zap.Int64("bytes_from_peer", info.BytesFromPeer),
		zap.Duration("duration", info.Duration()),
		zap.NamedError("cause", cause))

	if m.notifier != nil {
		m.notifier.SessionEnded(info)
	}
}
