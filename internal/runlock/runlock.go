// Package runlock prevents two srcmetrics runs from mutating the same
// data directory simultaneously. Plugin seen-sets and the open batch
// transaction are unsynchronized per-process state, so concurrent runs
// against one store are not a supported configuration.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/srcmetrics/srcmetrics/internal/errors"
)

// lockFileName lives inside the data directory.
const lockFileName = "run.lock"

// Lock is a cross-process advisory lock on a data directory.
type Lock struct {
	fl *flock.Flock
}

// New creates a lock for the given data directory.
func New(dataDir string) *Lock {
	return &Lock{fl: flock.New(filepath.Join(dataDir, lockFileName))}
}

// Acquire takes the lock without blocking. It fails fast when another run
// holds it; waiting would serialize runs the operator did not intend.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.fl.Path()), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return errors.New(errors.ErrCodeRunLocked,
			fmt.Sprintf("another srcmetrics run holds %s", l.fl.Path()), nil).
			WithSuggestion("wait for the other run to finish, or remove a stale lock file")
	}
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
