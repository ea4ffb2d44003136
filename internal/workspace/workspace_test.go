package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ralphcodes/ralph/internal/errors"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return w
}

func TestNew_RejectsMissingFolder(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), nil)
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNew_RejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path, nil); err == nil {
		t.Error("expected error for non-directory target")
	}
}

func TestWriteDesign(t *testing.T) {
	w := newTestWorkspace(t)

	if err := w.WriteDesign("Build the thing"); err != nil {
		t.Fatalf("WriteDesign failed: %v", err)
	}

	content, err := w.ReadDesign()
	if err != nil {
		t.Fatalf("ReadDesign failed: %v", err)
	}
	if content != "Build the thing\n" {
		t.Errorf("design = %q, want trailing newline added", content)
	}
}

func TestWriteDesign_RejectsEmpty(t *testing.T) {
	w := newTestWorkspace(t)

	if err := w.WriteDesign("   \n"); err == nil {
		t.Error("expected error for blank design content")
	}
}

func TestReadDesign_Missing(t *testing.T) {
	w := newTestWorkspace(t)

	if _, err := w.ReadDesign(); !errors.Is(err, errors.ErrDesignMissing) {
		t.Errorf("expected ErrDesignMissing, got %v", err)
	}
}

func TestScaffoldPlan(t *testing.T) {
	w := newTestWorkspace(t)

	created, err := w.ScaffoldPlan()
	if err != nil {
		t.Fatalf("ScaffoldPlan failed: %v", err)
	}
	if !created {
		t.Error("expected plan to be created")
	}

	data, err := os.ReadFile(w.Path(PlanFile))
	if err != nil {
		t.Fatalf("read plan: %v", err)
	}
	if !strings.Contains(string(data), "RALPH-PLAN.md") {
		t.Error("plan scaffold missing expected content")
	}

	// Second call must not overwrite
	if err := os.WriteFile(w.Path(PlanFile), []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	created, err = w.ScaffoldPlan()
	if err != nil {
		t.Fatalf("second ScaffoldPlan failed: %v", err)
	}
	if created {
		t.Error("scaffold overwrote an existing plan")
	}
	data, _ = os.ReadFile(w.Path(PlanFile))
	if string(data) != "custom" {
		t.Errorf("existing plan was modified: %q", data)
	}
}

func TestScaffoldProgress(t *testing.T) {
	w := newTestWorkspace(t)

	created, err := w.ScaffoldProgress()
	if err != nil {
		t.Fatalf("ScaffoldProgress failed: %v", err)
	}
	if !created {
		t.Error("expected progress to be created")
	}
	if !w.Exists(ProgressFile) {
		t.Error("progress file missing after scaffold")
	}
}

func TestPrompt(t *testing.T) {
	prompt, err := Prompt()
	if err != nil {
		t.Fatalf("Prompt failed: %v", err)
	}
	if prompt == "" {
		t.Fatal("prompt is empty")
	}
	if strings.HasSuffix(prompt, "\n") {
		t.Error("prompt should be trimmed")
	}
	for _, want := range []string{DesignFile, CheckpointFile, CompleteFile, BlockedFile} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing reference to %s", want)
		}
	}
}

func TestCopySpecs(t *testing.T) {
	w := newTestWorkspace(t)

	// Missing source: no error, no copy
	copied, err := w.CopySpecs(filepath.Join(t.TempDir(), "nope.md"))
	if err != nil {
		t.Fatalf("CopySpecs with missing source failed: %v", err)
	}
	if copied {
		t.Error("copied=true for missing source")
	}

	src := filepath.Join(t.TempDir(), "RALPH-SPECS.md")
	if err := os.WriteFile(src, []byte("# specs\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	copied, err = w.CopySpecs(src)
	if err != nil {
		t.Fatalf("CopySpecs failed: %v", err)
	}
	if !copied {
		t.Error("expected specs to be copied")
	}
	data, err := os.ReadFile(w.Path(SpecsFile))
	if err != nil || string(data) != "# specs\n" {
		t.Errorf("specs content = %q, err = %v", data, err)
	}
}

func TestCopyOpencodeConfig_ExistingWins(t *testing.T) {
	w := newTestWorkspace(t)

	src := filepath.Join(t.TempDir(), "opencode.json")
	if err := os.WriteFile(src, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	// Target already has a config; it must be preserved
	if err := os.WriteFile(w.Path(OpencodeConfigFile), []byte(`{"mine":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	copied, err := w.CopyOpencodeConfig(src)
	if err != nil {
		t.Fatalf("CopyOpencodeConfig failed: %v", err)
	}
	if copied {
		t.Error("existing opencode.json was overwritten")
	}
	data, _ := os.ReadFile(w.Path(OpencodeConfigFile))
	if string(data) != `{"mine":true}` {
		t.Errorf("target config changed: %q", data)
	}
}

func TestCopyOpencodeConfig_CopiesWhenAbsent(t *testing.T) {
	w := newTestWorkspace(t)

	src := filepath.Join(t.TempDir(), "opencode.json")
	if err := os.WriteFile(src, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	copied, err := w.CopyOpencodeConfig(src)
	if err != nil {
		t.Fatalf("CopyOpencodeConfig failed: %v", err)
	}
	if !copied {
		t.Error("expected config to be copied")
	}
}

func TestRemoveMarkers(t *testing.T) {
	w := newTestWorkspace(t)

	for _, name := range MarkerFiles() {
		if err := os.WriteFile(w.Path(name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// RALPH-STOP and project files must survive
	if err := os.WriteFile(w.Path(StopFile), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(w.Path("main.go"), []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := w.RemoveMarkers(); err != nil {
		t.Fatalf("RemoveMarkers failed: %v", err)
	}

	for _, name := range MarkerFiles() {
		if w.Exists(name) {
			t.Errorf("marker %s still exists", name)
		}
	}
	if !w.Exists(StopFile) {
		t.Error("RALPH-STOP was removed; it belongs to the user")
	}
	if !w.Exists("main.go") {
		t.Error("project file was removed")
	}
}

func TestRemove_MissingFileIsNoop(t *testing.T) {
	w := newTestWorkspace(t)
	if err := w.Remove("RALPH-COMPLETE.md"); err != nil {
		t.Errorf("Remove of missing file failed: %v", err)
	}
}
