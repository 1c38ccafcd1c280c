package lifecycle

import (
	"os"
	"syscall"
)

// signalGracefulStop asks the process named by pid to terminate
// gracefully. Used when StopWithResult is called from a process other
// than the one that started the server.
func signalGracefulStop(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}
