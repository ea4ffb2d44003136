package opencode

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ralphcodes/ralph/internal/errors"
)

func TestRunArgs(t *testing.T) {
	c := NewClient("opencode", "INFO", nil)

	got := c.RunArgs(RunSpec{Model: "anthropic/claude-opus-4-5", Prompt: "do the work"})
	want := []string{"--log-level", "INFO", "--model", "anthropic/claude-opus-4-5", "run", "do the work"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RunArgs = %v, want %v", got, want)
	}
}

func TestRunArgs_WithVariant(t *testing.T) {
	c := NewClient("opencode", "DEBUG", nil)

	got := c.RunArgs(RunSpec{Model: "m", Variant: "high", Prompt: "p"})
	want := []string{"--log-level", "DEBUG", "--model", "m", "--variant", "high", "run", "p"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RunArgs = %v, want %v", got, want)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", "", nil)
	if c.Binary() != "opencode" {
		t.Errorf("Binary = %q, want opencode", c.Binary())
	}
	args := c.RunArgs(RunSpec{Model: "m", Prompt: "p"})
	if args[1] != "INFO" {
		t.Errorf("default log level = %q, want INFO", args[1])
	}
}

func TestParseModels(t *testing.T) {
	output := "anthropic/claude-opus-4-5\n\n  openai/gpt-5.2  \nlocal/llama\n"
	got := ParseModels(output)
	want := []string{"anthropic/claude-opus-4-5", "openai/gpt-5.2", "local/llama"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseModels = %v, want %v", got, want)
	}

	if got := ParseModels("   \n\n"); got != nil {
		t.Errorf("ParseModels(blank) = %v, want nil", got)
	}
}

func TestResolve_NotFound(t *testing.T) {
	c := NewClient("definitely-not-a-real-binary-xyz", "INFO", nil)
	_, err := c.Resolve()
	if !errors.Is(err, errors.ErrOpencodeNotFound) {
		t.Errorf("expected ErrOpencodeNotFound, got %v", err)
	}
	if errors.IsRetryable(err) {
		t.Error("missing binary should not be retryable")
	}
}

func TestResolve_Found(t *testing.T) {
	// Use a binary guaranteed to exist in the test environment
	dir := t.TempDir()
	bin := filepath.Join(dir, "opencode")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	c := NewClient("opencode", "INFO", nil)
	path, err := c.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if path != bin {
		t.Errorf("Resolve = %q, want %q", path, bin)
	}
}

func TestModels_MissingBinary(t *testing.T) {
	c := NewClient("definitely-not-a-real-binary-xyz", "INFO", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Models(ctx)
	if !errors.Is(err, errors.ErrOpencodeNotFound) {
		t.Errorf("expected ErrOpencodeNotFound, got %v", err)
	}
}

func TestCommand(t *testing.T) {
	c := NewClient("opencode", "INFO", nil)
	cmd := c.Command(context.Background(), RunSpec{
		Dir:    "/tmp/project",
		Model:  "m",
		Prompt: "p",
	})

	if cmd.Dir != "/tmp/project" {
		t.Errorf("Dir = %q, want /tmp/project", cmd.Dir)
	}
	if len(cmd.Args) < 2 || cmd.Args[len(cmd.Args)-1] != "p" {
		t.Errorf("Args = %v", cmd.Args)
	}
}

func TestSignalGroup_NilSafe(t *testing.T) {
	if err := Terminate(nil); err != nil {
		t.Errorf("Terminate(nil) = %v", err)
	}
	if err := Kill(nil); err != nil {
		t.Errorf("Kill(nil) = %v", err)
	}
}
