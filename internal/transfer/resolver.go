package transfer

import (
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// Resolver maps a configured helper name to the path that is launched.
// Relative names are looked up next to the running executable first.
type Resolver struct {
	once    sync.Once
	baseDir string
}

// NewResolver returns a Resolver rooted at baseDir. An empty baseDir is
// replaced by the directory of the running executable on first use.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{baseDir: baseDir}
}

func (r *Resolver) installDir() string {
	r.once.Do(func() {
		if r.baseDir != "" {
			return
		}
		exe, err := os.Executable()
		if err != nil {
			return
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		r.baseDir = filepath.Dir(exe)
	})
	return r.baseDir
}

// Resolve never fails. A candidate that cannot be opened is only a hint that
// the helper lives on the search path, so the search path is consulted and the
// joined candidate is returned when that finds nothing either.
func (r *Resolver) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	candidate := filepath.Join(r.installDir(), name)
	if f, err := os.Open(candidate); err == nil {
		_ = f.Close()
		return candidate
	}
	if found, err := exec.LookPath(name); err == nil {
		if abs, err := filepath.Abs(found); err == nil {
			return abs
		}
		return found
	}
	return candidate
}
