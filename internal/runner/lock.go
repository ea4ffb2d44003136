package runner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/ralphcodes/ralph/internal/errors"
)

// lockPath maps a target folder to a lock file in the state dir. The hash
// keeps lock names valid regardless of what characters the target path
// contains.
func lockPath(stateDir, target string) string {
	sum := sha256.Sum256([]byte(target))
	return filepath.Join(stateDir, "locks", hex.EncodeToString(sum[:8])+".lock")
}

// acquireTargetLock takes a non-blocking file lock guarding the target
// folder, so two Ralph loops never operate on the same project at once —
// even across processes. Returns ErrTargetLocked when another run holds it.
func acquireTargetLock(stateDir, target string) (*flock.Flock, error) {
	path := lockPath(stateDir, target)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock dir: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, errors.NewTaskError("another run owns this folder", errors.ErrTargetLocked).
			WithTarget(target)
	}
	return fl, nil
}
