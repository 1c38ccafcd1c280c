package lifecycle

import (
	"os"
	"syscall"
)

// isLive reports whether pid names a live process. Sending signal 0
// performs no action but still returns an error if the process does not
// exist or is not ours to signal — the standard Unix liveness probe.
// There is no ecosystem library in the example pack for process
// liveness, so this is one of the few stdlib-only pieces in this
// module (documented in DESIGN.md).
func isLive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}
