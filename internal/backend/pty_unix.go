//go:build unix

package backend

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/kandev/xferterm/internal/common/config"
	"github.com/kandev/xferterm/internal/common/logger"
)

// ptyConn runs a local command under a pseudo-terminal and talks to it as
// the peer. It has no framing and no remote shell, so it reports Raw.
type ptyConn struct {
	cmd  *exec.Cmd
	ptmx *os.File
	log  *logger.Logger
	done chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func startPTY(cfg config.ConnectionConfig, log *logger.Logger) (Conn, error) {
	cmd := exec.Command("/bin/sh", "-c", cfg.Command)
	cmd.Env = append(os.Environ(), "TERM="+cfg.Term)
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 80})
	if err != nil {
		return nil, fmt.Errorf("start %q under a pty: %w", cfg.Command, err)
	}
	c := &ptyConn{cmd: cmd, ptmx: ptmx, log: log, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		err := cmd.Wait()
		log.Debug("pty command exited", zap.Error(err))
	}()
	log.Info("pty started", zap.String("command", cfg.Command), zap.Int("pid", cmd.Process.Pid))
	return c, nil
}

// Read reports io.EOF once the command has exited and its output is drained.
func (c *ptyConn) Read(p []byte) (int, error) {
	n, err := c.ptmx.Read(p)
	// Linux reports EIO on the master after the slave side closes.
	if err != nil && errors.Is(err, syscall.EIO) {
		return n, io.EOF
	}
	return n, err
}

func (c *ptyConn) Send(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.ptmx.Write(p)
	return err
}

func (c *ptyConn) Protocol() Protocol { return Raw }

func (c *ptyConn) Resize(cols, rows int) error {
	return pty.Setsize(c.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

func (c *ptyConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ptmx.Close()
		select {
		case <-c.done:
			return
		case <-time.After(500 * time.Millisecond):
		}
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
		<-c.done
	})
	return err
}
