package clihelp

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// LockTimeout bounds how long AcquireLock waits for a contended dump file
// (grounded on the teacher's lock.go, same retry-with-timeout shape, but
// using golang.org/x/sys/unix instead of syscall directly).
const LockTimeout = 5 * time.Second

var ErrLockTimeout = errors.New("lock timeout")

// FileLock guards a ticket-tool-free dump file: an advisory exclusive flock
// on a ".lock" sidecar, so two `cosmo -c` invocations writing the same
// output path don't interleave.
type FileLock struct {
	file *os.File
}

// AcquireLock tries to take an exclusive lock on path+".lock", retrying
// until LockTimeout elapses.
func AcquireLock(path string) (*FileLock, error) {
	lockPath := path + ".lock"

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	deadline := time.Now().Add(LockTimeout)
	const retryInterval = 10 * time.Millisecond

	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &FileLock{file: file}, nil
		}

		if time.Now().After(deadline) {
			_ = file.Close()

			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}

		time.Sleep(retryInterval)
	}
}

// Release unlocks and closes the sidecar file.
func (l *FileLock) Release() {
	if l.file != nil {
		_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
		_ = l.file.Close()
	}
}
