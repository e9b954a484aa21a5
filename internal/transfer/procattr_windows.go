//go:build windows

package transfer

import (
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// setProcAttr starts the helper hidden in a console of its own and hands it
// the argument string verbatim, so file quoting is exactly what was built.
func setProcAttr(cmd *exec.Cmd, program string, c Command) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CmdLine:       commandLine(program, c),
		CreationFlags: windows.CREATE_NEW_CONSOLE | windows.CREATE_NEW_PROCESS_GROUP,
	}
}

// killProcessGroup kills the helper and its children.
// /F = force, /T = include child processes.
func killProcessGroup(pid int) error {
	kill := exec.Command("taskkill", "/F", "/T", "/PID", fmt.Sprintf("%d", pid))
	kill.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	return kill.Run()
}
