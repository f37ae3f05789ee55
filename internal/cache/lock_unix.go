//go:build unix

package cache

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

type lockMode int

const (
	lockShared    lockMode = unix.LOCK_SH
	lockExclusive lockMode = unix.LOCK_EX
)

const lockPollInterval = 5 * time.Millisecond

// lockFile takes a flock(2) advisory lock on f, polling with LOCK_NB until
// timeout elapses.
func lockFile(f *os.File, mode lockMode, timeout time.Duration) error {
	fd := int(f.Fd())
	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(fd, int(mode)|unix.LOCK_NB)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, unix.EINTR):
			continue
		case !errors.Is(err, unix.EWOULDBLOCK):
			return &os.PathError{Op: "flock", Path: f.Name(), Err: err}
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		time.Sleep(lockPollInterval)
	}
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
