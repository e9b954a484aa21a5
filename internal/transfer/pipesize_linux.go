//go:build linux

package transfer

import (
	"os"

	"golang.org/x/sys/unix"
)

// setPipeSize grows the pipe buffer. Failure leaves the kernel default,
// which is already 64 KiB on most systems.
func setPipeSize(f *os.File, size int) {
	rc, err := f.SyscallConn()
	if err != nil {
		return
	}
	_ = rc.Control(func(fd uintptr) {
		_, _ = unix.FcntlInt(fd, unix.F_SETPIPE_SZ, size)
	})
}
