package transfer

import (
	"go.uber.org/zap"

	"github.com/kandev/xferterm/internal/backend"
)

// RemoteInitiate sends the configured remote command, once per download
// session, so the peer starts its sender. Raw connections are passed
// through untouched. It reports whether the command was sent.
//
// It panics if the backend reports a protocol without a known line
// terminator.
func (m *Manager) RemoteInitiate(b Backend) bool {
	if !m.cfg.RemoteCommandEnable || b == nil {
		return false
	}
	proto := b.Protocol()
	if proto == backend.Raw {
		return false
	}
	s := m.session
	if s == nil || s.remoteCommandSent {
		return false
	}

	term := backend.LineTerminator(proto)
	if err := b.Send([]byte(m.cfg.RemoteCommand)); err != nil {
		s.log.Debug("send remote command", zap.Error(err))
	}
	if err := b.Send([]byte(term)); err != nil {
		s.log.Debug("send remote command terminator", zap.Error(err))
	}
	s.remoteCommandSent = true
	s.log.Info("remote command sent",
		zap.String("command", m.cfg.RemoteCommand),
		zap.String("protocol", string(proto)))
	return true
}
