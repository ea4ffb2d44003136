package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readLogEntries(t *testing.T, path string) []map[string]any {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_WritesJSONToStateDir(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(dir, LevelInfo, RotationConfig{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("loop started", "model", "anthropic/claude-opus-4-5")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries := readLogEntries(t, filepath.Join(dir, LogFileName))
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0]["msg"] != "loop started" {
		t.Errorf("msg = %v, want 'loop started'", entries[0]["msg"])
	}
	if entries[0]["model"] != "anthropic/claude-opus-4-5" {
		t.Errorf("model = %v, want anthropic/claude-opus-4-5", entries[0]["model"])
	}
}

func TestNew_CreatesMissingStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	logger, err := New(dir, LevelInfo, RotationConfig{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("state directory was not created: %v", err)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(dir, LevelWarn, RotationConfig{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")
	logger.Close()

	entries := readLogEntries(t, filepath.Join(dir, LogFileName))
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at WARN level, got %d", len(entries))
	}
	if entries[0]["msg"] != "warn message" || entries[1]["msg"] != "error message" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestLogger_ChildAttributes(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(dir, LevelDebug, RotationConfig{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	child := logger.WithTask("task-1").WithTarget("/tmp/project").WithAttempt(3)
	child.Info("invoking opencode")

	// Parent logger must not inherit the child's attributes
	logger.Info("plain entry")
	logger.Close()

	entries := readLogEntries(t, filepath.Join(dir, LogFileName))
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first["task_id"] != "task-1" {
		t.Errorf("task_id = %v, want task-1", first["task_id"])
	}
	if first["target"] != "/tmp/project" {
		t.Errorf("target = %v, want /tmp/project", first["target"])
	}
	if first["attempt"] != float64(3) {
		t.Errorf("attempt = %v, want 3", first["attempt"])
	}

	second := entries[1]
	if _, ok := second["task_id"]; ok {
		t.Error("parent logger leaked child attribute task_id")
	}
}

func TestLogger_With(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(dir, LevelDebug, RotationConfig{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.With("marker", "RALPH-COMPLETE.md", "reason", "checkpoint").Info("marker seen")
	logger.Close()

	entries := readLogEntries(t, filepath.Join(dir, LogFileName))
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["marker"] != "RALPH-COMPLETE.md" {
		t.Errorf("marker = %v, want RALPH-COMPLETE.md", entries[0]["marker"])
	}
	if entries[0]["reason"] != "checkpoint" {
		t.Errorf("reason = %v, want checkpoint", entries[0]["reason"])
	}
}

func TestNop_DiscardsOutput(t *testing.T) {
	logger := Nop()

	// Must not panic and must be closeable
	logger.Info("discarded")
	logger.WithTask("x").Error("also discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close on nop logger failed: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"Info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
