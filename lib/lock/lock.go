// Package lock serializes pipeline runs on one host with a lock file, so a
// cron trigger arriving while a run is still training does not start a
// second one.
package lock

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// staleAfter bounds how long a lock file is honored. A run that somehow
// outlives this is assumed crashed and its lock is reclaimed.
const staleAfter = 6 * time.Hour

// RunLock guards pipeline runs against overlap.
type RunLock struct {
	path   string
	logger *slog.Logger
}

// New returns a lock rooted in the system temp directory.
func New(logger *slog.Logger) *RunLock {
	return &RunLock{
		path:   filepath.Join(os.TempDir(), "vodrec-run.lock"),
		logger: logger,
	}
}

// TryAcquire attempts to take the lock without blocking. It returns false
// when another run holds it.
func (l *RunLock) TryAcquire() (bool, error) {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return false, fmt.Errorf("failed to create lock file: %w", err)
		}

		info, statErr := os.Stat(l.path)
		if statErr != nil || time.Since(info.ModTime()) < staleAfter {
			return false, nil
		}

		l.logger.Warn("Removing stale run lock", slog.String("file", l.path))
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to remove stale lock file: %w", err)
		}

		file, err = os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err != nil {
			if os.IsExist(err) {
				return false, nil
			}
			return false, fmt.Errorf("failed to create lock file: %w", err)
		}
	}

	fmt.Fprintf(file, "%d\n", os.Getpid())
	if err := file.Close(); err != nil {
		return false, fmt.Errorf("failed to close lock file: %w", err)
	}

	l.logger.Debug("Acquired run lock", slog.String("file", l.path))
	return true, nil
}

// Release drops the lock. Releasing an already released lock is a no-op.
func (l *RunLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	l.logger.Debug("Released run lock", slog.String("file", l.path))
	return nil
}
