// Package backup preserves the files a Ralph run touches inside a target
// folder. Each run gets a uniquely named folder under the backup root: the
// submitted design content, any pre-existing marker files, and after the run
// finishes, the run's artifacts all end up there.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ralphcodes/ralph/internal/errors"
	"github.com/ralphcodes/ralph/internal/logging"
	"github.com/ralphcodes/ralph/internal/workspace"
)

// InfoFileName is the metadata file written into every backup folder.
const InfoFileName = "backup_info.txt"

// existingPrefix marks files that were already in the target folder before
// the run started, as opposed to artifacts the run produced.
const existingPrefix = "existing_"

// Info describes one backup folder.
type Info struct {
	ID      string
	Target  string
	Created time.Time
	Path    string
}

// Manager creates and inspects backup folders under a single root.
type Manager struct {
	root   string
	logger *logging.Logger
}

// NewManager creates a Manager rooted at root, creating the directory if
// needed.
func NewManager(root string, logger *logging.Logger) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup root: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{root: root, logger: logger}, nil
}

// Root returns the backup root directory.
func (m *Manager) Root() string {
	return m.root
}

// Path returns the folder path for a backup ID.
func (m *Manager) Path(id string) string {
	return filepath.Join(m.root, id)
}

// Create makes a new backup folder for a run against targetDir: it writes
// backup_info.txt, saves the submitted design content, and copies every
// pre-existing marker file as existing_<name>. The generated backup ID is
// returned.
func (m *Manager) Create(targetDir, designContent string) (string, error) {
	id := uuid.NewString()
	path := m.Path(id)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", errors.NewBackupError("failed to create backup folder", err).
			WithBackupID(id).WithPath(path)
	}

	info := fmt.Sprintf("Backup Created: %s\nTarget Folder: %s\nBackup ID: %s\n",
		time.Now().Format(time.RFC3339), targetDir, id)
	if err := os.WriteFile(filepath.Join(path, InfoFileName), []byte(info), 0o644); err != nil {
		return "", errors.NewBackupError("failed to write backup info", err).
			WithBackupID(id).WithPath(path)
	}

	if err := os.WriteFile(filepath.Join(path, workspace.DesignFile), []byte(designContent), 0o644); err != nil {
		return "", errors.NewBackupError("failed to save design content", err).
			WithBackupID(id).WithPath(path)
	}

	for _, name := range workspace.MarkerFiles() {
		src := filepath.Join(targetDir, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(path, existingPrefix+name)
		if err := copyFile(src, dst); err != nil {
			return "", errors.NewBackupError("failed to back up existing file", err).
				WithBackupID(id).WithPath(src)
		}
	}

	m.logger.Info("backup created", "backup_id", id, "target", targetDir)
	return id, nil
}

// MoveRunArtifacts moves the files a finished run left in targetDir into the
// backup folder. When includeOpencodeConfig is true (Ralph placed the
// opencode.json itself), that file moves too. Missing files are skipped.
func (m *Manager) MoveRunArtifacts(id, targetDir string, includeOpencodeConfig bool) error {
	path := m.Path(id)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.NewBackupError("failed to create backup folder", err).
			WithBackupID(id).WithPath(path)
	}

	files := workspace.RunArtifacts()
	if includeOpencodeConfig {
		files = append(files, workspace.OpencodeConfigFile)
	}

	for _, name := range files {
		src := filepath.Join(targetDir, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(path, name)
		if err := moveFile(src, dst); err != nil {
			return errors.NewBackupError("failed to move artifact to backup", err).
				WithBackupID(id).WithPath(src)
		}
		m.logger.Debug("moved to backup", "file", name, "backup_id", id)
	}
	return nil
}

// Get reads the metadata of one backup.
func (m *Manager) Get(id string) (*Info, error) {
	path := m.Path(id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("backup", id)
		}
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}
	return m.readInfo(id, path), nil
}

// List returns all backups under the root, newest first.
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup root: %w", err)
	}

	var infos []*Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		infos = append(infos, m.readInfo(e.Name(), filepath.Join(m.root, e.Name())))
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Created.After(infos[j].Created)
	})
	return infos, nil
}

// Restore copies a backup's artifact files into destDir. Files saved with
// the existing_ prefix are restored under their original names only when
// the backup holds no post-run copy of the same file. backup_info.txt stays
// behind.
func (m *Manager) Restore(id, destDir string) error {
	info, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	entries, err := os.ReadDir(info.Path)
	if err != nil {
		return fmt.Errorf("failed to read backup folder: %w", err)
	}

	// Plain artifact files first; they win over existing_ snapshots.
	restored := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == InfoFileName || strings.HasPrefix(name, existingPrefix) {
			continue
		}
		if err := copyFile(filepath.Join(info.Path, name), filepath.Join(destDir, name)); err != nil {
			return errors.NewBackupError("failed to restore file", err).
				WithBackupID(id).WithPath(name)
		}
		restored[name] = true
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, existingPrefix) {
			continue
		}
		original := strings.TrimPrefix(name, existingPrefix)
		if restored[original] {
			continue
		}
		if err := copyFile(filepath.Join(info.Path, name), filepath.Join(destDir, original)); err != nil {
			return errors.NewBackupError("failed to restore file", err).
				WithBackupID(id).WithPath(name)
		}
	}

	m.logger.Info("backup restored", "backup_id", id, "dest", destDir)
	return nil
}

// readInfo parses backup_info.txt, falling back to directory metadata when
// the file is absent or malformed.
func (m *Manager) readInfo(id, path string) *Info {
	info := &Info{ID: id, Path: path}

	if fi, err := os.Stat(path); err == nil {
		info.Created = fi.ModTime()
	}

	data, err := os.ReadFile(filepath.Join(path, InfoFileName))
	if err != nil {
		return info
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Target Folder":
			info.Target = value
		case "Backup Created":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				info.Created = t
			}
		}
	}
	return info
}

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

// moveFile renames src to dst, falling back to copy+remove across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
