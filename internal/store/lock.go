package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Lock when another process owns the state file.
var ErrLocked = errors.New("state file is in use by another quadview instance")

// InstanceLock is an exclusive advisory lock held next to a state file for
// as long as a controller writes to it. The operating system drops the lock
// when the owning process exits, so a crashed run never blocks the next.
type InstanceLock struct {
	fl *flock.Flock
}

// LockPath returns the lock file used for the state file at path.
func LockPath(path string) string {
	return path + ".lock"
}

// Lock takes the instance lock for the state file at path without waiting.
// It fails with ErrLocked if another holder has it.
func Lock(path string) (*InstanceLock, error) {
	lockPath := LockPath(path)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return &InstanceLock{fl: fl}, nil
}

// Held reports whether some process currently holds the instance lock for
// the state file at path.
func Held(path string) (bool, error) {
	if _, err := os.Stat(LockPath(path)); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	l, err := Lock(path)
	if errors.Is(err, ErrLocked) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, l.Unlock()
}

// Unlock releases the lock. The lock file is left in place.
func (l *InstanceLock) Unlock() error {
	return l.fl.Unlock()
}
