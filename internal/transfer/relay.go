package transfer

import (
	"errors"
	"io"
	"os"

	"go.uber.org/zap"
)

type stream int

const (
	primaryStream   stream = iota // helper stderr, to the display
	secondaryStream               // helper stdout, to the peer
)

func (s stream) String() string {
	if s == primaryStream {
		return "stderr"
	}
	return "stdout"
}

func (c *child) output(s stream) *os.File {
	if s == primaryStream {
		return c.primary
	}
	return c.secondary
}

// Poll writes queued peer bytes, relays whatever the helper has written and
// ends the session when the helper has exited or closed an output. Queued
// input counts as activity. It returns false at once when idle.
func (m *Manager) Poll(b Backend) bool {
	s := m.session
	if s == nil {
		return false
	}
	activity := m.flushInput(s) || len(s.pending) > 0
	activity = m.checkOutput(b, primaryStream) || activity
	if m.session == nil {
		return true
	}
	return m.checkOutput(b, secondaryStream) || activity
}

// checkOutput drains one helper output. Data is forwarded until the pipe is
// empty; a read that returns nothing while the pipe was ready means the
// stream is closed. With nothing to read the helper's exit status decides.
func (m *Manager) checkOutput(b Backend, which stream) bool {
	s := m.session
	f := s.proc.output(which)

	ready, err := peekAvailable(f)
	if err != nil {
		m.finish(b, EndStreamClosed, &StreamError{Stream: which.String(), Err: err})
		return true
	}
	if !ready {
		if s.proc.alive() {
			return false
		}
		m.finish(b, EndExited, nil)
		return true
	}

	forwarded := false
	for ready {
		n, err := nonBlockingRead(f, m.buf[:])
		if n > 0 {
			m.forward(b, s, which, m.buf[:n])
			forwarded = true
			if ready, err = peekAvailable(f); err != nil {
				m.finish(b, EndStreamClosed, &StreamError{Stream: which.String(), Err: err})
				return true
			}
			continue
		}
		if errors.Is(err, errWouldBlock) {
			return forwarded
		}
		if err == nil {
			err = io.EOF
		}
		m.finish(b, EndStreamClosed, &StreamError{Stream: which.String(), Err: err})
		return true
	}
	return forwarded
}

func (m *Manager) forward(b Backend, s *session, which stream, p []byte) {
	if which == primaryStream {
		s.info.BytesToDisplay += int64(len(p))
		m.display.Deliver(p)
		return
	}
	s.info.BytesToPeer += int64(len(p))
	if b == nil {
		return
	}
	if err := b.Send(p); err != nil {
		s.log.Debug("send helper output to peer", zap.Int("bytes", len(p)), zap.Error(err))
	}
}

// drainRemaining forwards output still buffered after the helper stopped,
// so a helper that writes and exits at once loses nothing. A helper child
// that keeps writing is cut off after one pipe buffer per stream.
func (m *Manager) drainRemaining(b Backend, s *session) {
	for _, which := range []stream{primaryStream, secondaryStream} {
		f := s.proc.output(which)
		if f == nil {
			continue
		}
		for budget := PipeBufferSize; budget > 0; {
			n, err := nonBlockingRead(f, m.buf[:])
			if n == 0 || err != nil {
				break
			}
			m.forward(b, s, which, m.buf[:n])
			budget -= n
		}
	}
}
