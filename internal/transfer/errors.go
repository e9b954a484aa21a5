package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionActive is returned when a session is started while another is running.
	ErrSessionActive = errors.New("transfer already in progress")
	// ErrNoFiles is returned by StartUpload for an empty file list.
	ErrNoFiles = errors.New("no files selected for upload")

	errWouldBlock = errors.New("read would block")
)

// SpawnError reports a failure to create the helper's pipes or process.
// The session stays idle; nothing is retried.
type SpawnError struct {
	Direction Direction
	Program   string
	Args      string
	Err       error
}

func (e *SpawnError) Error() string {
	verb := "receiving"
	if e.Direction == Upload {
		verb = "sending"
	}
	return fmt.Sprintf("Unable to start %s '%s' with parameters '%s': %v", verb, e.Program, e.Args, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// StreamError records that a helper output reached end-of-stream or failed
// to read. It ends the session like a normal exit.
type StreamError struct {
	Stream string
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("helper %s closed: %v", e.Stream, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// WriteError records a failed write to the helper's input. It is never
// returned to callers; the next poll notices the helper is gone.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("helper input write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
