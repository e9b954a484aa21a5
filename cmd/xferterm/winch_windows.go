//go:build windows

package main

import (
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/kandev/xferterm/internal/backend"
	"github.com/kandev/xferterm/internal/common/logger"
)

// watchResize sends the console size once. Windows has no SIGWINCH.
func watchResize(fd int, r backend.Resizer, log *logger.Logger) func() {
	if cols, rows, err := term.GetSize(fd); err == nil {
		if err := r.Resize(cols, rows); err != nil {
			log.Debug("resize failed", zap.Error(err))
		}
	}
	return func() {}
}
