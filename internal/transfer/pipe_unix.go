//go:build unix

package transfer

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// createPipe returns a close-on-exec pipe whose ends are in non-blocking
// mode. os/exec clears close-on-exec only on the copy it hands the child.
func createPipe() (r, w *os.File, err error) {
	r, w, err = os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	setPipeSize(w, PipeBufferSize)
	return r, w, nil
}

// prepareInput is a no-op: os.Pipe ends are already non-blocking and
// os/exec switches only the child's copy back to blocking mode.
func prepareInput(_ *os.File) error { return nil }

// peekAvailable reports whether a read on f would return without blocking:
// data is buffered, or the writer is gone and the read will report EOF.
func peekAvailable(f *os.File) (bool, error) {
	rc, err := f.SyscallConn()
	if err != nil {
		return false, err
	}
	var (
		ready   bool
		pollErr error
	)
	err = rc.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		for {
			n, err := unix.Poll(fds, 0)
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				pollErr = err
				return
			}
			ready = n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0
			return
		}
	})
	if err != nil {
		return false, err
	}
	return ready, pollErr
}

// nonBlockingRead reads at most len(p) bytes without parking the caller.
func nonBlockingRead(f *os.File, p []byte) (int, error) {
	rc, err := f.SyscallConn()
	if err != nil {
		return 0, err
	}
	var (
		n       int
		readErr error
	)
	err = rc.Read(func(fd uintptr) bool {
		for {
			n, readErr = unix.Read(int(fd), p)
			if readErr != unix.EINTR {
				return true
			}
		}
	})
	if err != nil {
		return 0, err
	}
	switch {
	case readErr == unix.EAGAIN:
		return 0, errWouldBlock
	case readErr != nil:
		return 0, readErr
	case n == 0:
		return 0, io.EOF
	}
	return n, nil
}

// nonBlockingWrite writes what the pipe can take right now. A full pipe
// writes nothing and is not an error.
func nonBlockingWrite(f *os.File, p []byte) (int, error) {
	rc, err := f.SyscallConn()
	if err != nil {
		return 0, err
	}
	var (
		n        int
		writeErr error
	)
	err = rc.Write(func(fd uintptr) bool {
		for {
			n, writeErr = unix.Write(int(fd), p)
			if writeErr != unix.EINTR {
				return true
			}
		}
	})
	if err != nil {
		return 0, err
	}
	switch {
	case writeErr == unix.EAGAIN:
		return 0, nil
	case writeErr != nil:
		return 0, writeErr
	case n < 0:
		return 0, nil
	}
	return n, nil
}
