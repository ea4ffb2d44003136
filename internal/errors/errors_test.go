package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestTaskError_Format(t *testing.T) {
	err := NewTaskError("loop aborted", ErrMaxAttempts).
		WithTaskID("task-1").
		WithTarget("/home/me/project").
		WithAttempt(40)

	want := "task error [task=task-1, target=/home/me/project, attempt=40]: loop aborted: max attempts reached without completion"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTaskError_IsSentinel(t *testing.T) {
	err := NewTaskError("loop aborted", ErrMaxAttempts)

	if !Is(err, ErrMaxAttempts) {
		t.Error("expected Is(err, ErrMaxAttempts) to be true")
	}
	if Is(err, ErrBackupNotFound) {
		t.Error("expected Is(err, ErrBackupNotFound) to be false")
	}
}

func TestTaskError_AsType(t *testing.T) {
	var err error = NewTaskError("x", nil).WithTaskID("task-9")
	wrapped := fmt.Errorf("outer: %w", err)

	var taskErr *TaskError
	if !As(wrapped, &taskErr) {
		t.Fatal("expected As to find TaskError through wrapping")
	}
	if taskErr.TaskID != "task-9" {
		t.Errorf("TaskID = %q, want task-9", taskErr.TaskID)
	}
}

func TestOpencodeError_Format(t *testing.T) {
	err := NewOpencodeError("run failed", ErrOpencodeFailed).WithExitCode(2)

	want := "opencode error [exit=2]: run failed: opencode exited with an error"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestOpencodeError_RetryableByDefault(t *testing.T) {
	err := NewOpencodeError("run failed", ErrOpencodeFailed)
	if !IsRetryable(err) {
		t.Error("opencode failures should be retryable by default")
	}

	notRetryable := NewOpencodeError("binary missing", ErrOpencodeNotFound).WithRetryable(false)
	if IsRetryable(notRetryable) {
		t.Error("WithRetryable(false) should disable retry classification")
	}
}

func TestBackupError_Format(t *testing.T) {
	err := NewBackupError("copy failed", ErrBackupExists).
		WithBackupID("2f9c").
		WithPath("/tmp/x/RALPH-DESIGN.md")

	want := "backup error [backup=2f9c, path=/tmp/x/RALPH-DESIGN.md]: copy failed: backup already exists"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("backup", "abc123")

	if err.Error() != "backup 'abc123' not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !IsUserFacing(err) {
		t.Error("NotFoundError should be user-facing")
	}
	if IsRetryable(err) {
		t.Error("NotFoundError should not be retryable")
	}
}

func TestValidationError_MatchesInvalidInput(t *testing.T) {
	err := NewValidationError("folder does not exist").WithField("folder").WithValue("/nope")

	if !Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}

	want := "validation error [field=folder, value=/nope]: folder does not exist"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("waiting for marker file", 30*time.Second)

	if !Is(err, ErrTimeout) {
		t.Error("TimeoutError should match ErrTimeout")
	}
	if !IsRetryable(err) {
		t.Error("timeouts should be retryable")
	}

	want := "timeout error: waiting for marker file (timeout: 30s)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsRetryable_PlainErrors(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if IsRetryable(New("random")) {
		t.Error("plain errors should not be retryable")
	}
	if !IsRetryable(fmt.Errorf("wrapped: %w", ErrTimeout)) {
		t.Error("errors wrapping ErrTimeout should be retryable")
	}
	if !IsRetryable(fmt.Errorf("wrapped: %w", ErrOpencodeFailed)) {
		t.Error("errors wrapping ErrOpencodeFailed should be retryable")
	}
}

func TestGetSeverity(t *testing.T) {
	if GetSeverity(nil) != SeverityDebug {
		t.Error("nil severity should be debug")
	}
	if GetSeverity(New("plain")) != SeverityError {
		t.Error("plain error severity should be error")
	}
	if GetSeverity(NewNotFoundError("task", "x")) != SeverityWarning {
		t.Error("not-found severity should be warning")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	base := New("base")
	wrapped := Wrapf(base, "failed to back up %s", "RALPH-PLAN.md")
	if !Is(wrapped, base) {
		t.Error("wrapped error should match base")
	}
	want := "failed to back up RALPH-PLAN.md: base"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		s    Severity
		want string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
