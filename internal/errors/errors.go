// Package errors provides centralized error definitions and error handling
// utilities for the Ralph codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - TaskError: errors from the loop runner and task management
//   - BackupError: errors from the backup manager
//   - OpencodeError: errors from invoking the external opencode CLI
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewTaskError("loop failed", errors.ErrMaxAttempts).WithTaskID("task-1")
//	err := errors.NewNotFoundError("backup", "2f9c...")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrOpencodeNotFound) { ... }
//
//	var taskErr *errors.TaskError
//	if errors.As(err, &taskErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Task-related sentinel errors
var (
	// ErrTaskNotFound indicates that a task could not be found.
	ErrTaskNotFound = New("task not found")
	// ErrTaskAlreadyRunning indicates that a runner was started twice.
	ErrTaskAlreadyRunning = New("task already running")
	// ErrTargetLocked indicates another Ralph loop holds the target folder lock.
	ErrTargetLocked = New("target folder is locked by another run")
	// ErrDesignMissing indicates the target folder has no RALPH-DESIGN.md.
	ErrDesignMissing = New("design file missing")
	// ErrMaxAttempts indicates the loop hit its attempt limit without completing.
	ErrMaxAttempts = New("max attempts reached without completion")
)

// Opencode-related sentinel errors
var (
	// ErrOpencodeNotFound indicates the opencode binary is not on PATH.
	ErrOpencodeNotFound = New("opencode command not found")
	// ErrOpencodeFailed indicates opencode exited non-zero.
	ErrOpencodeFailed = New("opencode exited with an error")
)

// Backup-related sentinel errors
var (
	// ErrBackupNotFound indicates that a backup could not be found.
	ErrBackupNotFound = New("backup not found")
	// ErrBackupExists indicates that a backup with the same ID already exists.
	ErrBackupExists = New("backup already exists")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// RalphError is the base interface for all Ralph errors.
// It extends the standard error interface with methods for classification.
type RalphError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }
func (e *baseError) IsUserFacing() bool { return e.userFacing }

// TaskError represents errors from the loop runner and task management.
//
// Example:
//
//	err := errors.NewTaskError("loop aborted", errors.ErrMaxAttempts)
//	err = err.WithTaskID("task-1").WithTarget("/home/me/project")
type TaskError struct {
	baseError
	TaskID  string
	Target  string
	Attempt int
}

// NewTaskError creates a new TaskError.
func NewTaskError(message string, cause error) *TaskError {
	return &TaskError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Attempt: -1, // -1 indicates not set
	}
}

// WithTaskID adds a task ID to the error context.
func (e *TaskError) WithTaskID(id string) *TaskError {
	e.TaskID = id
	return e
}

// WithTarget adds the target folder to the error context.
func (e *TaskError) WithTarget(dir string) *TaskError {
	e.Target = dir
	return e
}

// WithAttempt adds the loop attempt number to the error context.
func (e *TaskError) WithAttempt(n int) *TaskError {
	e.Attempt = n
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *TaskError) WithRetryable(r bool) *TaskError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TaskError) Error() string {
	var parts []string
	if e.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskID))
	}
	if e.Target != "" {
		parts = append(parts, fmt.Sprintf("target=%s", e.Target))
	}
	if e.Attempt >= 0 {
		parts = append(parts, fmt.Sprintf("attempt=%d", e.Attempt))
	}

	prefix := "task error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("task error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *TaskError) Is(target error) bool {
	if _, ok := target.(*TaskError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// BackupError represents errors from the backup manager.
//
// Example:
//
//	err := errors.NewBackupError("copy failed", cause).WithBackupID(id).WithPath(src)
type BackupError struct {
	baseError
	BackupID string
	Path     string
}

// NewBackupError creates a new BackupError.
func NewBackupError(message string, cause error) *BackupError {
	return &BackupError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithBackupID adds a backup ID to the error context.
func (e *BackupError) WithBackupID(id string) *BackupError {
	e.BackupID = id
	return e
}

// WithPath adds the file path involved to the error context.
func (e *BackupError) WithPath(path string) *BackupError {
	e.Path = path
	return e
}

// Error returns the formatted error message.
func (e *BackupError) Error() string {
	var parts []string
	if e.BackupID != "" {
		parts = append(parts, fmt.Sprintf("backup=%s", e.BackupID))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}

	prefix := "backup error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("backup error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *BackupError) Is(target error) bool {
	if _, ok := target.(*BackupError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// OpencodeError represents errors from invoking the external opencode CLI.
//
// Example:
//
//	err := errors.NewOpencodeError("run failed", errors.ErrOpencodeFailed).WithExitCode(2)
type OpencodeError struct {
	baseError
	ExitCode int
	Output   string // Captured command output, if any
}

// NewOpencodeError creates a new OpencodeError.
func NewOpencodeError(message string, cause error) *OpencodeError {
	return &OpencodeError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true, // a failed attempt backs off and retries
			userFacing: true,
		},
		ExitCode: -1,
	}
}

// WithExitCode adds the process exit code to the error context.
func (e *OpencodeError) WithExitCode(code int) *OpencodeError {
	e.ExitCode = code
	return e
}

// WithOutput adds captured command output to the error context.
func (e *OpencodeError) WithOutput(output string) *OpencodeError {
	e.Output = output
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *OpencodeError) WithRetryable(r bool) *OpencodeError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *OpencodeError) Error() string {
	prefix := "opencode error"
	if e.ExitCode >= 0 {
		prefix = fmt.Sprintf("opencode error [exit=%d]", e.ExitCode)
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Output != "" {
		msg = fmt.Sprintf("%s\noutput: %s", msg, e.Output)
	}

	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *OpencodeError) Is(target error) bool {
	if _, ok := target.(*OpencodeError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("backup", "2f9c")
//	fmt.Println(err) // "backup '2f9c' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("target folder does not exist").WithField("folder")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for marker file", 30*time.Second)
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ralphErr RalphError
	if As(err, &ralphErr) {
		return ralphErr.IsRetryable()
	}

	if Is(err, ErrTimeout) || Is(err, ErrOpencodeFailed) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var ralphErr RalphError
	if As(err, &ralphErr) {
		return ralphErr.IsUserFacing()
	}

	// Semantic errors are always user-facing
	var notFound *NotFoundError
	var validation *ValidationError
	var timeout *TimeoutError
	if As(err, &notFound) || As(err, &validation) || As(err, &timeout) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement RalphError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var ralphErr RalphError
	if As(err, &ralphErr) {
		return ralphErr.Severity()
	}

	return SeverityError
}

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to scaffold plan file")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to back up %s", path)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
