package runner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ralphcodes/ralph/internal/backup"
	"github.com/ralphcodes/ralph/internal/errors"
	"github.com/ralphcodes/ralph/internal/history"
	"github.com/ralphcodes/ralph/internal/opencode"
	"github.com/ralphcodes/ralph/internal/workspace"
)

func newTestManager(t *testing.T, client *opencode.Client) (*Manager, string) {
	t.Helper()
	stateDir := t.TempDir()

	backups, err := backup.NewManager(filepath.Join(stateDir, "backups"), nil)
	if err != nil {
		t.Fatal(err)
	}
	hist, err := history.Load(stateDir, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	return NewManager(stateDir, backups, hist, client, nil), stateDir
}

func completeRequest(t *testing.T) StartRequest {
	t.Helper()
	return StartRequest{
		Folder:      t.TempDir(),
		Design:      "build it\n",
		Model:       "test/model",
		MaxAttempts: 3,
		Sleep:       10 * time.Millisecond,
	}
}

func TestManager_StartPreparesTarget(t *testing.T) {
	client := fakeOpencode(t, "echo done > RALPH-COMPLETE.md")
	m, _ := newTestManager(t, client)

	req := completeRequest(t)
	// Pre-existing marker must be backed up and removed
	stale := filepath.Join(req.Folder, workspace.ProgressFile)
	if err := os.WriteFile(stale, []byte("old progress"), 0o644); err != nil {
		t.Fatal(err)
	}

	task, err := m.Start(req)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Design was written
	design, err := os.ReadFile(filepath.Join(req.Folder, workspace.DesignFile))
	if err != nil || string(design) != "build it\n" {
		t.Errorf("design = %q, err = %v", design, err)
	}

	// The stale progress file went to backup
	backed := filepath.Join(m.backups.Path(task.BackupID), "existing_"+workspace.ProgressFile)
	data, err := os.ReadFile(backed)
	if err != nil || string(data) != "old progress" {
		t.Errorf("backup of stale progress = %q, err = %v", data, err)
	}

	if got := task.Runner.Wait(); got != StatusCompleted {
		t.Errorf("final status = %s, want completed", got)
	}
}

func TestManager_StartRequiresModel(t *testing.T) {
	client := fakeOpencode(t, "true")
	m, _ := newTestManager(t, client)

	req := completeRequest(t)
	req.Model = ""
	if _, err := m.Start(req); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestManager_TargetLockedWhileRunning(t *testing.T) {
	client := fakeOpencode(t, "sleep 2; echo done > RALPH-COMPLETE.md")
	m, _ := newTestManager(t, client)

	req := completeRequest(t)
	task, err := m.Start(req)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		task.Runner.Stop()
		task.Runner.Wait()
	}()

	second := req
	if _, err := m.Start(second); !errors.Is(err, errors.ErrTargetLocked) {
		t.Errorf("expected ErrTargetLocked, got %v", err)
	}
}

func TestManager_SweepArchivesFinishedTask(t *testing.T) {
	client := fakeOpencode(t, "echo done > RALPH-COMPLETE.md")
	m, _ := newTestManager(t, client)

	req := completeRequest(t)
	task, err := m.Start(req)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	task.Runner.Wait()

	m.Sweep()

	if !task.Archived() {
		t.Error("task not archived after sweep")
	}
	// Artifacts moved out of the target into the backup
	if _, err := os.Stat(filepath.Join(req.Folder, workspace.CompleteFile)); !os.IsNotExist(err) {
		t.Error("complete marker still in target after sweep")
	}
	if _, err := os.Stat(filepath.Join(m.backups.Path(task.BackupID), workspace.CompleteFile)); err != nil {
		t.Errorf("complete marker missing from backup: %v", err)
	}

	// Lock released: a new run on the same folder may start
	req2 := StartRequest{
		Folder:      req.Folder,
		Design:      "again\n",
		Model:       "test/model",
		MaxAttempts: 3,
		Sleep:       10 * time.Millisecond,
	}
	task2, err := m.Start(req2)
	if err != nil {
		t.Fatalf("restart after sweep failed: %v", err)
	}
	task2.Runner.Wait()
}

func TestManager_SweepSkipsRunningTask(t *testing.T) {
	client := fakeOpencode(t, "sleep 2; echo done > RALPH-COMPLETE.md")
	m, _ := newTestManager(t, client)

	task, err := m.Start(completeRequest(t))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		task.Runner.Stop()
		task.Runner.Wait()
		m.Sweep()
	}()

	m.Sweep()
	if task.Archived() {
		t.Error("running task was archived")
	}
}

func TestManager_ArchivedSafeDuringSweep(t *testing.T) {
	client := fakeOpencode(t, "echo done > RALPH-COMPLETE.md")
	m, _ := newTestManager(t, client)

	task, err := m.Start(completeRequest(t))
	if err != nil {
		t.Fatal(err)
	}
	task.Runner.Wait()

	// Archived is read while Sweep flips it on another goroutine
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			m.Sweep()
		}
	}()
	for i := 0; i < 50; i++ {
		task.Archived()
	}
	<-done

	if !task.Archived() {
		t.Error("task not archived after sweep")
	}
}

func TestManager_GetAndList(t *testing.T) {
	client := fakeOpencode(t, "echo done > RALPH-COMPLETE.md")
	m, _ := newTestManager(t, client)

	task, err := m.Start(completeRequest(t))
	if err != nil {
		t.Fatal(err)
	}
	task.Runner.Wait()

	got, err := m.Get(task.ID)
	if err != nil || got.ID != task.ID {
		t.Errorf("Get = %v, err = %v", got, err)
	}

	if _, err := m.Get("nope"); !errors.Is(err, errors.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}

	if tasks := m.List(); len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Errorf("List = %v", tasks)
	}
}

func TestManager_Remove(t *testing.T) {
	client := fakeOpencode(t, "echo done > RALPH-COMPLETE.md")
	m, _ := newTestManager(t, client)

	task, err := m.Start(completeRequest(t))
	if err != nil {
		t.Fatal(err)
	}
	task.Runner.Wait()

	if err := m.Remove(task.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("task still listed after Remove")
	}
}

func TestManager_HistoryRecorded(t *testing.T) {
	client := fakeOpencode(t, "echo done > RALPH-COMPLETE.md")
	m, stateDir := newTestManager(t, client)

	req := completeRequest(t)
	req.Variant = "high"
	task, err := m.Start(req)
	if err != nil {
		t.Fatal(err)
	}
	task.Runner.Wait()

	hist, err := history.Load(stateDir, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if folders := hist.Folders(); len(folders) != 1 || folders[0] != req.Folder {
		t.Errorf("Folders = %v", folders)
	}
	if models := hist.Models(); len(models) != 1 || models[0] != "test/model" {
		t.Errorf("Models = %v", models)
	}
	if hist.Variant() != "high" {
		t.Errorf("Variant = %q", hist.Variant())
	}
}

func TestManager_CopyOpencodeConfig(t *testing.T) {
	client := fakeOpencode(t, "echo done > RALPH-COMPLETE.md")
	m, _ := newTestManager(t, client)

	src := filepath.Join(t.TempDir(), "opencode.json")
	if err := os.WriteFile(src, []byte(`{"permission":"ask"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	req := completeRequest(t)
	req.CopyOpencodeConfig = true
	req.OpencodeConfigSource = src

	task, err := m.Start(req)
	if err != nil {
		t.Fatal(err)
	}
	if !task.OpencodeConfigCopied {
		t.Error("OpencodeConfigCopied = false, want true")
	}
	task.Runner.Wait()

	// Sweep moves the copied config into the backup
	m.Sweep()
	if _, err := os.Stat(filepath.Join(req.Folder, workspace.OpencodeConfigFile)); !os.IsNotExist(err) {
		t.Error("Ralph-placed opencode.json left in target after sweep")
	}
	if _, err := os.Stat(filepath.Join(m.backups.Path(task.BackupID), workspace.OpencodeConfigFile)); err != nil {
		t.Errorf("opencode.json missing from backup: %v", err)
	}
}
