// Package workspace prepares a target project folder for a Ralph run: it
// writes the design file, scaffolds the plan and progress files from
// embedded templates, copies optional companions (RALPH-SPECS.md,
// opencode.json), and cleans stale marker files left by earlier runs.
package workspace

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ralphcodes/ralph/internal/errors"
	"github.com/ralphcodes/ralph/internal/logging"
)

// Marker and companion filenames that Ralph reads or writes inside the
// target folder.
const (
	DesignFile     = "RALPH-DESIGN.md"
	SpecsFile      = "RALPH-SPECS.md"
	PlanFile       = "RALPH-PLAN.md"
	ProgressFile   = "RALPH-PROGRESS.md"
	CompleteFile   = "RALPH-COMPLETE.md"
	BlockedFile    = "RALPH-BLOCKED.md"
	CheckpointFile = "RALPH-CHECKPOINT.md"
	StopFile       = "RALPH-STOP"

	// OpencodeConfigFile configures the opencode CLI's permissions for the
	// target folder.
	OpencodeConfigFile = "opencode.json"
)

//go:embed templates/*.md
var templateFS embed.FS

// MarkerFiles returns the marker filenames that are backed up from and
// removed out of a target folder before a fresh run. RALPH-STOP is excluded:
// it belongs to the user, not to Ralph.
func MarkerFiles() []string {
	return []string{
		DesignFile,
		ProgressFile,
		CompleteFile,
		PlanFile,
		CheckpointFile,
		BlockedFile,
	}
}

// RunArtifacts returns the filenames a finished run leaves behind that are
// moved into the run's backup folder.
func RunArtifacts() []string {
	return []string{
		DesignFile,
		ProgressFile,
		CompleteFile,
		PlanFile,
	}
}

// Template returns the embedded template content for the given filename.
func Template(name string) (string, error) {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return string(data), nil
}

// Prompt returns the iteration prompt passed to opencode run.
func Prompt() (string, error) {
	content, err := Template("RALPH-PROMPT.md")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// Workspace operates on one target project folder.
type Workspace struct {
	dir    string
	logger *logging.Logger
}

// New creates a Workspace for the given target folder. The folder must
// already exist.
func New(dir string, logger *logging.Logger) (*Workspace, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewValidationError("target folder does not exist").
				WithField("folder").WithValue(dir)
		}
		return nil, fmt.Errorf("failed to stat target folder: %w", err)
	}
	if !info.IsDir() {
		return nil, errors.NewValidationError("target is not a directory").
			WithField("folder").WithValue(dir)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Workspace{dir: dir, logger: logger.WithTarget(dir)}, nil
}

// Dir returns the workspace's target folder.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the absolute path of a file inside the target folder.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Exists reports whether the named file exists in the target folder.
func (w *Workspace) Exists(name string) bool {
	_, err := os.Stat(w.Path(name))
	return err == nil
}

// WriteDesign writes the design content to RALPH-DESIGN.md, replacing any
// existing file. A trailing newline is ensured. The write goes through a
// temp file and rename so a crash never leaves a half-written design.
func (w *Workspace) WriteDesign(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.NewValidationError("design content cannot be empty").
			WithField("design")
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if err := atomicWrite(w.Path(DesignFile), []byte(content)); err != nil {
		return fmt.Errorf("failed to write %s: %w", DesignFile, err)
	}
	w.logger.Info("wrote design file", "file", DesignFile, "bytes", len(content))
	return nil
}

// ReadDesign returns the current design content, or ErrDesignMissing when
// the file does not exist.
func (w *Workspace) ReadDesign() (string, error) {
	data, err := os.ReadFile(w.Path(DesignFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.ErrDesignMissing
		}
		return "", fmt.Errorf("failed to read %s: %w", DesignFile, err)
	}
	return string(data), nil
}

// ScaffoldPlan creates RALPH-PLAN.md from the embedded template when the
// target folder has none. Returns true when a file was created.
func (w *Workspace) ScaffoldPlan() (bool, error) {
	return w.scaffold(PlanFile)
}

// ScaffoldProgress creates RALPH-PROGRESS.md from the embedded template when
// the target folder has none. Returns true when a file was created.
func (w *Workspace) ScaffoldProgress() (bool, error) {
	return w.scaffold(ProgressFile)
}

func (w *Workspace) scaffold(name string) (bool, error) {
	if w.Exists(name) {
		return false, nil
	}
	content, err := Template(name)
	if err != nil {
		return false, err
	}
	if err := atomicWrite(w.Path(name), []byte(content)); err != nil {
		return false, fmt.Errorf("failed to scaffold %s: %w", name, err)
	}
	w.logger.Info("created scaffold", "file", name)
	return true, nil
}

// CopySpecs copies a RALPH-SPECS.md lookup file from sourcePath into the
// target folder. A missing source is not an error; the run simply proceeds
// without specs. Returns true when a copy happened.
func (w *Workspace) CopySpecs(sourcePath string) (bool, error) {
	if sourcePath == "" {
		return false, nil
	}
	if _, err := os.Stat(sourcePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat specs source: %w", err)
	}
	if err := copyFile(sourcePath, w.Path(SpecsFile)); err != nil {
		return false, fmt.Errorf("failed to copy %s: %w", SpecsFile, err)
	}
	w.logger.Info("copied specs file", "source", sourcePath)
	return true, nil
}

// CopyOpencodeConfig copies an opencode.json from sourcePath into the target
// folder, but only when the target has none: an existing project config
// always wins. Returns true when a copy happened — the caller uses this to
// know the file is Ralph's to clean up afterwards.
func (w *Workspace) CopyOpencodeConfig(sourcePath string) (bool, error) {
	if sourcePath == "" || w.Exists(OpencodeConfigFile) {
		return false, nil
	}
	if _, err := os.Stat(sourcePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat opencode config source: %w", err)
	}
	if err := copyFile(sourcePath, w.Path(OpencodeConfigFile)); err != nil {
		return false, fmt.Errorf("failed to copy %s: %w", OpencodeConfigFile, err)
	}
	w.logger.Info("copied opencode config", "source", sourcePath)
	return true, nil
}

// RemoveMarkers deletes all Ralph marker files from the target folder.
// Callers back them up first.
func (w *Workspace) RemoveMarkers() error {
	for _, name := range MarkerFiles() {
		if err := w.Remove(name); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the named file from the target folder if it exists.
func (w *Workspace) Remove(name string) error {
	err := os.Remove(w.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	if err == nil {
		w.logger.Debug("removed file", "file", name)
	}
	return nil
}

// atomicWrite writes data to path via a temp file in the same directory
// followed by a rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// copyFile copies src to dst, truncating dst if it exists.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
