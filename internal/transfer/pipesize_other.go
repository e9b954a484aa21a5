//go:build unix && !linux

package transfer

import "os"

// setPipeSize is a no-op: BSD and macOS pipes grow on demand up to 64 KiB.
func setPipeSize(_ *os.File, _ int) {}
