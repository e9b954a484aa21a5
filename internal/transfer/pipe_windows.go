//go:build windows

package transfer

import (
	"errors"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32       = windows.NewLazySystemDLL("kernel32.dll")
	procPeekNamedPipe = modkernel32.NewProc("PeekNamedPipe")
)

// createPipe returns an anonymous pipe with a PipeBufferSize kernel buffer.
// Both handles are non-inheritable; os/exec duplicates the child's ends into
// an explicit inheritance list.
func createPipe() (r, w *os.File, err error) {
	var rh, wh windows.Handle
	if err := windows.CreatePipe(&rh, &wh, nil, PipeBufferSize); err != nil {
		return nil, nil, err
	}
	return os.NewFile(uintptr(rh), "|0"), os.NewFile(uintptr(wh), "|1"), nil
}

// prepareInput puts the manager's end of the helper's stdin pipe in
// PIPE_NOWAIT mode, so a write into a full pipe returns what fit instead of
// waiting for the helper to read.
func prepareInput(f *os.File) error {
	mode := uint32(windows.PIPE_READMODE_BYTE | windows.PIPE_NOWAIT)
	return windows.SetNamedPipeHandleState(windows.Handle(f.Fd()), &mode, nil, nil)
}

func bytesAvailable(f *os.File) (uint32, error) {
	var avail uint32
	r1, _, e1 := procPeekNamedPipe.Call(f.Fd(), 0, 0, 0, uintptr(unsafe.Pointer(&avail)), 0)
	if r1 == 0 {
		return 0, e1
	}
	return avail, nil
}

// peekAvailable treats a broken pipe as ready so the following read reports EOF.
func peekAvailable(f *os.File) (bool, error) {
	avail, err := bytesAvailable(f)
	if err != nil {
		if errors.Is(err, windows.ERROR_BROKEN_PIPE) {
			return true, nil
		}
		return false, err
	}
	return avail > 0, nil
}

// nonBlockingRead never asks ReadFile for more than is already buffered.
func nonBlockingRead(f *os.File, p []byte) (int, error) {
	avail, err := bytesAvailable(f)
	if err != nil {
		if errors.Is(err, windows.ERROR_BROKEN_PIPE) {
			return 0, io.EOF
		}
		return 0, err
	}
	if avail == 0 {
		return 0, errWouldBlock
	}
	if uint32(len(p)) > avail {
		p = p[:avail]
	}
	var done uint32
	if err := windows.ReadFile(windows.Handle(f.Fd()), p, &done, nil); err != nil {
		if errors.Is(err, windows.ERROR_BROKEN_PIPE) {
			return 0, io.EOF
		}
		return 0, err
	}
	if done == 0 {
		return 0, io.EOF
	}
	return int(done), nil
}

// nonBlockingWrite writes what the pipe can take right now. The input end is
// in PIPE_NOWAIT mode, so WriteFile reports a short count when it is full.
func nonBlockingWrite(f *os.File, p []byte) (int, error) {
	var done uint32
	if err := windows.WriteFile(windows.Handle(f.Fd()), p, &done, nil); err != nil {
		return int(done), err
	}
	return int(done), nil
}
