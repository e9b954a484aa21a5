package transfer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kandev/xferterm/internal/backend"
	"github.com/kandev/xferterm/internal/common/config"
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

type recordingDisplay struct {
	buf bytes.Buffer
}

func (d *recordingDisplay) Deliver(p []byte) { d.buf.Write(p) }

type recordingBackend struct {
	proto backend.Protocol
	sent  bytes.Buffer
	sends int
}

func (b *recordingBackend) Send(p []byte) error {
	b.sent.Write(p)
	b.sends++
	return nil
}

func (b *recordingBackend) Protocol() backend.Protocol { return b.proto }

type recordingNotifier struct {
	started []SessionInfo
	ended   []SessionInfo
}

func (n *recordingNotifier) SessionStarted(info SessionInfo) { n.started = append(n.started, info) }
func (n *recordingNotifier) SessionEnded(info SessionInfo)   { n.ended = append(n.ended, info) }

func testTransferConfig(t *testing.T) config.TransferConfig {
	t.Helper()
	return config.TransferConfig{
		DownloadCommand: "sh",
		DownloadOptions: "-E -b",
		UploadCommand:   "sh",
		UploadOptions:   "-b -e",
		DownloadDir:     t.TempDir(),
		RemoteCommand:   "sz",
		Autodetect:      true,
		ExitGrace:       100 * time.Millisecond,
		PollInterval:    time.Millisecond,
	}
}

type testManager struct {
	*Manager
	display  *recordingDisplay
	notifier *recordingNotifier
	backend  *recordingBackend
}

func newTestManager(t *testing.T, cfg config.TransferConfig) *testManager {
	t.Helper()
	display := &recordingDisplay{}
	notifier := &recordingNotifier{}
	m := NewManager(cfg, display, notifier, newTestLogger(t))
	tm := &testManager{
		Manager:  m,
		display:  display,
		notifier: notifier,
		backend:  &recordingBackend{proto: backend.Telnet},
	}
	t.Cleanup(m.Abort)
	return tm
}

// pollUntilIdle drives the relay the way the host loop does.
func (tm *testManager) pollUntilIdle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for tm.Active() {
		if time.Now().After(deadline) {
			t.Fatalf("session still active after 10s")
		}
		if !tm.Poll(tm.backend) {
			time.Sleep(2 * time.Millisecond)
		}
	}
}

// injectSession puts the manager in the Active state without a helper, for
// tests that never reach the pipes.
func (tm *testManager) injectSession(dir Direction) {
	tm.session = &session{
		info:              SessionInfo{ID: "test", Direction: dir},
		remoteCommandSent: dir == Upload,
		log:               tm.logger,
	}
}
