// Package flock provides cross-platform file locking utilities.
//
// nixpr uses an exclusive lock on the cache root to serialize workspace
// acquisition between concurrent runs: the existence check and directory
// creation in workspace.Manager.Acquire must be atomic with respect to other
// nixpr processes, otherwise two runs could both conclude a build directory
// name is free.
//
// Usage:
//
//	release, err := flock.Acquire(filepath.Join(cacheRoot, ".lock"))
//	if err != nil {
//	    // Lock not acquired - another run is acquiring a workspace
//	}
//	defer release()
package flock

import (
	"fmt"
	"os"
)

// Acquire opens (creating if needed) the lock file at path and takes an
// exclusive non-blocking lock on it. It returns a release function that
// unlocks and closes the file. The lock file itself is left in place.
func Acquire(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) //#nosec G304 -- path is derived from the cache root, not user input
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := Exclusive(f.Fd()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to lock '%s': %w", path, err)
	}

	return func() {
		_ = Unlock(f.Fd())
		_ = f.Close()
	}, nil
}
