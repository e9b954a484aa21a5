//go:build windows

package backend

import (
	"errors"

	"github.com/kandev/xferterm/internal/common/config"
	"github.com/kandev/xferterm/internal/common/logger"
)

func startPTY(_ config.ConnectionConfig, _ *logger.Logger) (Conn, error) {
	return nil, errors.New("pty connections are not supported on windows")
}
