//go:build !linux

package backend

import (
	"fmt"
	"runtime"

	"github.com/kandev/xferterm/internal/common/config"
	"github.com/kandev/xferterm/internal/common/logger"
)

func openSerial(cfg config.ConnectionConfig, _ *logger.Logger) (Conn, error) {
	return nil, fmt.Errorf("serial connections are not supported on %s (device %s)", runtime.GOOS, cfg.Device)
}
