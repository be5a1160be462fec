//go:build !unix

package fs

import (
	"errors"
	"time"
)

// ErrWouldBlock is returned when a lock is held by another process and could
// not be acquired in time.
var ErrWouldBlock = errors.New("lock would block")

// Locker is a no-op on platforms without flock(2).
type Locker struct{}

// NewLocker returns a no-op Locker.
func NewLocker(FS) *Locker {
	return &Locker{}
}

// Lock is a held lock. Call [Lock.Close] to release it.
type Lock struct{}

// Close does nothing.
func (*Lock) Close() error {
	return nil
}

// TryLock always succeeds.
func (l *Locker) TryLock(path string) (*Lock, error) {
	return &Lock{}, nil
}

// LockWithTimeout always succeeds.
func (l *Locker) LockWithTimeout(string, time.Duration) (*Lock, error) {
	return &Lock{}, nil
}
