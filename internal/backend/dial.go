package backend

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/kandev/xferterm/internal/common/config"
	"github.com/kandev/xferterm/internal/common/logger"
)

// Resizer is implemented by connections that carry a terminal size.
type Resizer interface {
	Resize(cols, rows int) error
}

// Dial opens the connection described by cfg.
func Dial(ctx context.Context, cfg config.ConnectionConfig, log *logger.Logger) (Conn, error) {
	log = log.WithFields(zap.String("component", "backend"), zap.String("kind", cfg.Kind))

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	switch cfg.Kind {
	case "raw":
		nc, err := dialTCP(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("connected", zap.String("addr", cfg.Address()))
		return newStreamConn(nc, Raw), nil
	case "telnet":
		nc, err := dialTCP(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("connected", zap.String("addr", cfg.Address()))
		return newTelnetConn(nc, log), nil
	case "rlogin":
		nc, err := dialTCP(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c, err := newRLoginConn(ctx, nc, cfg)
		if err != nil {
			_ = nc.Close()
			return nil, err
		}
		log.Info("connected", zap.String("addr", cfg.Address()), zap.String("user", cfg.User))
		return c, nil
	case "ssh":
		return dialSSH(ctx, cfg, log)
	case "serial":
		return openSerial(cfg, log)
	case "pty":
		return startPTY(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported connection kind %q", cfg.Kind)
	}
}

func dialTCP(ctx context.Context, cfg config.ConnectionConfig) (net.Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Address(), err)
	}
	return nc, nil
}

// streamConn adapts any byte stream with no framing of its own.
type streamConn struct {
	rw    io.ReadWriteCloser
	proto Protocol

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newStreamConn(rw io.ReadWriteCloser, proto Protocol) *streamConn {
	return &streamConn{rw: rw, proto: proto}
}

func (c *streamConn) Read(p []byte) (int, error) { return c.rw.Read(p) }

func (c *streamConn) Send(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.rw.Write(p)
	return err
}

func (c *streamConn) Protocol() Protocol { return c.proto }

func (c *streamConn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.rw.Close() })
	return c.closeErr
}
