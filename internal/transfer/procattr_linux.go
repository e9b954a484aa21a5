//go:build linux

package transfer

import (
	"os/exec"
	"syscall"
)

// setProcAttr runs the helper in its own process group so a forced
// termination also reaches anything it spawned. Pdeathsig stops the helper
// if the terminal dies without tearing the session down.
func setProcAttr(cmd *exec.Cmd, _ string, _ Command) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}

// killProcessGroup kills the entire process group for the given PID.
func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
