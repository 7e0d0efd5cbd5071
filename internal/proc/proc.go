// Package proc probes host process liveness.
package proc

import (
	"errors"
	"os"
	"syscall"
)

// Alive reports whether pid names a running process on this host.
// The probe delivers signal 0, which checks for existence without
// affecting the target. A process owned by another user answers EPERM;
// that still counts as alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
