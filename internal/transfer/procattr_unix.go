//go:build unix && !linux

package transfer

import (
	"os/exec"
	"syscall"
)

// setProcAttr runs the helper in its own process group.
// Pdeathsig is Linux-specific; elsewhere orphan cleanup relies on teardown.
func setProcAttr(cmd *exec.Cmd, _ string, _ Command) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup kills the entire process group for the given PID.
func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
