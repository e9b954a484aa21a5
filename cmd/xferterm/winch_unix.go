//go:build !windows

package main

import (
	"os"
	"os/signal"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/kandev/xferterm/internal/backend"
	"github.com/kandev/xferterm/internal/common/logger"
)

// watchResize forwards the local window size to r now and on every
// SIGWINCH. The returned function stops watching.
func watchResize(fd int, r backend.Resizer, log *logger.Logger) func() {
	resize := func() {
		cols, rows, err := term.GetSize(fd)
		if err != nil {
			return
		}
		if err := r.Resize(cols, rows); err != nil {
			log.Debug("resize failed", zap.Int("cols", cols), zap.Int("rows", rows), zap.Error(err))
		}
	}
	resize()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGWINCH)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigs:
				resize()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
