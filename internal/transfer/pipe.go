package transfer

import (
	"errors"
	"os"
)

// PipeBufferSize is the kernel buffer requested for each helper pipe. The
// relay is polled, so the helper must be able to run ahead of it.
const PipeBufferSize = 64 * 1024

// pipeFactory creates one unidirectional pipe. The read end is returned first.
type pipeFactory func() (r, w *os.File, err error)

// pipeSet owns every handle created while spawning. Anything not claimed by
// release is closed by closeAll, so error paths need no bookkeeping.
type pipeSet struct {
	files []*os.File
}

func (s *pipeSet) open(newPipe pipeFactory) (r, w *os.File, err error) {
	r, w, err = newPipe()
	if err != nil {
		return nil, nil, err
	}
	s.files = append(s.files, r, w)
	return r, w, nil
}

// release stops tracking f so closeAll leaves it open.
func (s *pipeSet) release(f *os.File) *os.File {
	for i, owned := range s.files {
		if owned == f {
			s.files = append(s.files[:i], s.files[i+1:]...)
			break
		}
	}
	return f
}

func (s *pipeSet) closeAll() error {
	var errs []error
	for _, f := range s.files {
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}
