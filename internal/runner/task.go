package runner

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/ralphcodes/ralph/internal/backup"
	"github.com/ralphcodes/ralph/internal/errors"
	"github.com/ralphcodes/ralph/internal/history"
	"github.com/ralphcodes/ralph/internal/logging"
	"github.com/ralphcodes/ralph/internal/opencode"
	"github.com/ralphcodes/ralph/internal/workspace"
)

// Task is one Ralph run: a runner plus the bookkeeping around it.
type Task struct {
	ID       string
	Folder   string
	BackupID string
	Model    string
	// OpencodeConfigCopied records whether Ralph placed the opencode.json
	// into the target, and therefore owns cleaning it up.
	OpencodeConfigCopied bool
	StartedAt            time.Time
	Runner               *Runner

	lock *flock.Flock
	// archived is read by callers while Sweep flips it on its own
	// goroutine.
	archived atomic.Bool
}

// Elapsed returns the task's running time as a display string.
func (t *Task) Elapsed() time.Duration {
	return time.Since(t.StartedAt)
}

// Archived reports whether the task's artifacts have been moved to backup.
func (t *Task) Archived() bool {
	return t.archived.Load()
}

// StartRequest describes a new run.
type StartRequest struct {
	Folder string
	Design string
	Model  string
	// Variant is the opencode model variant; empty omits the flag.
	Variant string
	// SpecsSource is an optional RALPH-SPECS.md to copy alongside the
	// design.
	SpecsSource string
	// OpencodeConfigSource is copied into the target as opencode.json when
	// the target has none and CopyOpencodeConfig is set.
	OpencodeConfigSource string
	CopyOpencodeConfig   bool
	MaxAttempts          int
	Sleep                time.Duration
}

// Manager tracks running tasks, prepares target folders, and sweeps
// finished runs into backup.
type Manager struct {
	stateDir string
	backups  *backup.Manager
	hist     *history.Store
	client   *opencode.Client
	logger   *logging.Logger

	mu    sync.Mutex
	tasks map[string]*Task
}

// NewManager creates a task Manager. hist may be nil when no history
// tracking is wanted.
func NewManager(stateDir string, backups *backup.Manager, hist *history.Store, client *opencode.Client, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{
		stateDir: stateDir,
		backups:  backups,
		hist:     hist,
		client:   client,
		logger:   logger,
		tasks:    make(map[string]*Task),
	}
}

// Start prepares the target folder and launches the loop:
// lock the target, back up what is already there, clear old markers, write
// the new design, copy companions, then start the runner.
func (m *Manager) Start(req StartRequest) (*Task, error) {
	if req.Model == "" {
		return nil, errors.NewValidationError("model cannot be empty").WithField("model")
	}

	ws, err := workspace.New(req.Folder, m.logger)
	if err != nil {
		return nil, err
	}

	lock, err := acquireTargetLock(m.stateDir, req.Folder)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (*Task, error) {
		_ = lock.Unlock()
		return nil, err
	}

	backupID, err := m.backups.Create(req.Folder, req.Design)
	if err != nil {
		return fail(err)
	}

	if err := ws.RemoveMarkers(); err != nil {
		return fail(err)
	}
	if err := ws.WriteDesign(req.Design); err != nil {
		return fail(err)
	}
	if _, err := ws.CopySpecs(req.SpecsSource); err != nil {
		return fail(err)
	}

	configCopied := false
	if req.CopyOpencodeConfig {
		configCopied, err = ws.CopyOpencodeConfig(req.OpencodeConfigSource)
		if err != nil {
			return fail(err)
		}
	}

	r := New(Options{
		Folder:      req.Folder,
		Model:       req.Model,
		Variant:     req.Variant,
		MaxAttempts: req.MaxAttempts,
		Sleep:       req.Sleep,
		Client:      m.client,
		Logger:      m.logger,
	})

	task := &Task{
		ID:                   uuid.NewString(),
		Folder:               req.Folder,
		BackupID:             backupID,
		Model:                req.Model,
		OpencodeConfigCopied: configCopied,
		StartedAt:            time.Now(),
		Runner:               r,
		lock:                 lock,
	}

	if err := r.Start(); err != nil {
		return fail(err)
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.mu.Unlock()

	if m.hist != nil {
		_ = m.hist.AddFolder(req.Folder)
		_ = m.hist.AddModel(req.Model)
		_ = m.hist.SetVariant(req.Variant)
	}

	m.logger.WithTask(task.ID).Info("task started",
		"target", req.Folder, "model", req.Model, "backup_id", backupID)
	return task, nil
}

// Get returns a task by ID.
func (m *Manager) Get(id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, errors.Wrap(errors.ErrTaskNotFound, id)
	}
	return task, nil
}

// List returns all known tasks, oldest first.
func (m *Manager) List() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].StartedAt.Before(tasks[j].StartedAt)
	})
	return tasks
}

// Sweep finalizes finished tasks: run artifacts move into the task's
// backup folder and the target lock is released. Swept tasks stay listed
// (marked archived) until Remove.
func (m *Manager) Sweep() {
	for _, task := range m.List() {
		if task.Archived() || !task.Runner.Snapshot().Status.Terminal() {
			continue
		}
		if err := m.backups.MoveRunArtifacts(task.BackupID, task.Folder, task.OpencodeConfigCopied); err != nil {
			m.logger.WithTask(task.ID).Error("failed to archive run artifacts", "error", err)
			continue
		}
		if task.lock != nil {
			_ = task.lock.Unlock()
		}
		task.archived.Store(true)
		m.logger.WithTask(task.ID).Info("task archived", "backup_id", task.BackupID)
	}
}

// Remove forgets a task. Running tasks are stopped first.
func (m *Manager) Remove(id string) error {
	task, err := m.Get(id)
	if err != nil {
		return err
	}
	if !task.Runner.Snapshot().Status.Terminal() {
		task.Runner.Stop()
		task.Runner.Wait()
	}
	m.Sweep()

	m.mu.Lock()
	delete(m.tasks, id)
	m.mu.Unlock()
	return nil
}

// StopAll stops every running task and waits for the loops to exit.
func (m *Manager) StopAll() {
	tasks := m.List()
	for _, t := range tasks {
		t.Runner.Stop()
	}
	for _, t := range tasks {
		t.Runner.Wait()
	}
	m.Sweep()
}
