// Package marker detects the sentinel files a Ralph iteration leaves in the
// target folder: a checkpoint when one unit of work is done, a completion
// marker when the whole task is finished, and a blocked marker when the
// agent cannot proceed.
package marker

import (
	"os"
	"path/filepath"

	"github.com/ralphcodes/ralph/internal/workspace"
)

// Kind identifies which sentinel file was found.
type Kind int

const (
	// None means no marker file is present.
	None Kind = iota
	// Checkpoint means one iteration finished and the loop should continue.
	Checkpoint
	// Complete means the whole task is done.
	Complete
	// Blocked means the agent cannot make progress.
	Blocked
)

// String returns a human-readable name for the marker kind.
func (k Kind) String() string {
	switch k {
	case Checkpoint:
		return "checkpoint"
	case Complete:
		return "complete"
	case Blocked:
		return "blocked"
	default:
		return "none"
	}
}

// File returns the marker's filename, or "" for None.
func (k Kind) File() string {
	switch k {
	case Checkpoint:
		return workspace.CheckpointFile
	case Complete:
		return workspace.CompleteFile
	case Blocked:
		return workspace.BlockedFile
	default:
		return ""
	}
}

// Terminal reports whether the marker ends the whole loop rather than one
// iteration.
func (k Kind) Terminal() bool {
	return k == Complete || k == Blocked
}

// Detect checks the directory once and returns the highest-precedence marker
// present. Complete beats blocked beats checkpoint, so a task that managed
// to finish is never misreported because a stray checkpoint also exists.
func Detect(dir string) Kind {
	for _, k := range []Kind{Complete, Blocked, Checkpoint} {
		if fileExists(filepath.Join(dir, k.File())) {
			return k
		}
	}
	return None
}

// StopRequested reports whether the user dropped a RALPH-STOP file into the
// directory. Ralph only ever reads this file.
func StopRequested(dir string) bool {
	return fileExists(filepath.Join(dir, workspace.StopFile))
}

// Read returns the content of the marker file for k in dir.
func Read(dir string, k Kind) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, k.File()))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Consume removes the marker file for k from dir. Used for checkpoints,
// which are one-shot signals.
func Consume(dir string, k Kind) error {
	err := os.Remove(filepath.Join(dir, k.File()))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
