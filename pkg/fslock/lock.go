// Package fslock provides a cross-process lock on a build directory so two
// builds never write into the same intermediate directory at once.
package fslock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".build.lock"

// DirLock is an exclusive advisory lock backed by <dir>/.build.lock.
type DirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New creates an unlocked DirLock for dir.
func New(dir string) *DirLock {
	lockPath := filepath.Join(dir, lockFileName)
	return &DirLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock acquires the lock without blocking. It returns false if another
// process holds it.
func (l *DirLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("creating lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquiring lock %s: %w", l.path, err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Calling it on an unlocked DirLock is a no-op.
func (l *DirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.path
}
