// SPDX-License-Identifier: AGPL-3.0-only
package singleton

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock represents an acquired singleton lock for the agent process.
type Lock struct {
	flock *flock.Flock
}

// TryAcquire attempts to acquire the singleton lock at the given path.
// It returns the lock and true if acquired (primary instance), or nil and
// false if the lock is already held by another process. Parent directories
// are created on first run.
func TryAcquire(lockPath string) (*Lock, bool, error) {
	if dir := filepath.Dir(lockPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("singleton: create lock dir %s: %w", dir, err)
		}
	}

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("singleton: try lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, false, nil
	}
	return &Lock{flock: fl}, true, nil
}

// Release releases the singleton lock.
func (l *Lock) Release() error {
	return l.flock.Unlock()
}
