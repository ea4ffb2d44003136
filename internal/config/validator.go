package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "loop.max_attempts")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidOpencodeLogLevels returns the log levels the opencode CLI accepts
func ValidOpencodeLogLevels() []string {
	return []string{"DEBUG", "INFO", "WARN", "ERROR"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateLoop()...)
	errors = append(errors, c.validateOpencode()...)
	errors = append(errors, c.validateWatcher()...)
	errors = append(errors, c.validateHistory()...)
	errors = append(errors, c.validateViewer()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePaths()...)

	return errors
}

// validateLoop validates the LoopConfig
func (c *Config) validateLoop() []ValidationError {
	var errors []ValidationError

	const minAttempts = 1
	const maxAttempts = 1000

	if c.Loop.MaxAttempts < minAttempts {
		errors = append(errors, ValidationError{
			Field:   "loop.max_attempts",
			Value:   c.Loop.MaxAttempts,
			Message: fmt.Sprintf("must be at least %d", minAttempts),
		})
	}
	if c.Loop.MaxAttempts > maxAttempts {
		errors = append(errors, ValidationError{
			Field:   "loop.max_attempts",
			Value:   c.Loop.MaxAttempts,
			Message: fmt.Sprintf("exceeds maximum of %d", maxAttempts),
		})
	}

	if c.Loop.SleepSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "loop.sleep_seconds",
			Value:   c.Loop.SleepSeconds,
			Message: "must be non-negative",
		})
	}

	// An hour between attempts is almost certainly a typo
	const maxSleepSeconds = 3600
	if c.Loop.SleepSeconds > maxSleepSeconds {
		errors = append(errors, ValidationError{
			Field:   "loop.sleep_seconds",
			Value:   c.Loop.SleepSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d seconds", maxSleepSeconds),
		})
	}

	return errors
}

// validateOpencode validates the OpencodeConfig
func (c *Config) validateOpencode() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Opencode.Binary) == "" {
		errors = append(errors, ValidationError{
			Field:   "opencode.binary",
			Value:   c.Opencode.Binary,
			Message: "cannot be empty",
		})
	}

	if c.Opencode.LogLevel != "" && !slices.Contains(ValidOpencodeLogLevels(), c.Opencode.LogLevel) {
		errors = append(errors, ValidationError{
			Field:   "opencode.log_level",
			Value:   c.Opencode.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOpencodeLogLevels(), ", ")),
		})
	}

	if !IsValidVariant(c.Opencode.Variant) {
		errors = append(errors, ValidationError{
			Field:   "opencode.variant",
			Value:   c.Opencode.Variant,
			Message: "must be empty or one of: minimal, high, max",
		})
	}

	if c.Opencode.ModelsTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "opencode.models_timeout_seconds",
			Value:   c.Opencode.ModelsTimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateWatcher validates the WatcherConfig
func (c *Config) validateWatcher() []ValidationError {
	var errors []ValidationError

	const minPollInterval = 50    // 50ms minimum
	const maxPollInterval = 60000 // 1 minute maximum

	if c.Watcher.PollIntervalMs < minPollInterval {
		errors = append(errors, ValidationError{
			Field:   "watcher.poll_interval_ms",
			Value:   c.Watcher.PollIntervalMs,
			Message: fmt.Sprintf("must be at least %dms", minPollInterval),
		})
	}
	if c.Watcher.PollIntervalMs > maxPollInterval {
		errors = append(errors, ValidationError{
			Field:   "watcher.poll_interval_ms",
			Value:   c.Watcher.PollIntervalMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxPollInterval),
		})
	}

	return errors
}

// validateHistory validates the HistoryConfig
func (c *Config) validateHistory() []ValidationError {
	var errors []ValidationError

	const maxHistoryItems = 100

	if c.History.MaxFolders < 0 {
		errors = append(errors, ValidationError{
			Field:   "history.max_folders",
			Value:   c.History.MaxFolders,
			Message: "must be non-negative (0 disables folder history)",
		})
	}
	if c.History.MaxFolders > maxHistoryItems {
		errors = append(errors, ValidationError{
			Field:   "history.max_folders",
			Value:   c.History.MaxFolders,
			Message: fmt.Sprintf("exceeds maximum of %d", maxHistoryItems),
		})
	}

	if c.History.MaxModels < 0 {
		errors = append(errors, ValidationError{
			Field:   "history.max_models",
			Value:   c.History.MaxModels,
			Message: "must be non-negative (0 disables model history)",
		})
	}
	if c.History.MaxModels > maxHistoryItems {
		errors = append(errors, ValidationError{
			Field:   "history.max_models",
			Value:   c.History.MaxModels,
			Message: fmt.Sprintf("exceeds maximum of %d", maxHistoryItems),
		})
	}

	return errors
}

// validateViewer validates the ViewerConfig
func (c *Config) validateViewer() []ValidationError {
	var errors []ValidationError

	if c.Viewer.WrapWidth < 0 {
		errors = append(errors, ValidationError{
			Field:   "viewer.wrap_width",
			Value:   c.Viewer.WrapWidth,
			Message: "must be non-negative (0 uses terminal width)",
		})
	}

	const maxWrapWidth = 500
	if c.Viewer.WrapWidth > maxWrapWidth {
		errors = append(errors, ValidationError{
			Field:   "viewer.wrap_width",
			Value:   c.Viewer.WrapWidth,
			Message: fmt.Sprintf("exceeds maximum of %d columns", maxWrapWidth),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	for _, p := range []struct {
		field string
		value string
	}{
		{"paths.state_dir", c.Paths.StateDir},
		{"backup.dir", c.Backup.Dir},
	} {
		if p.value == "" {
			continue
		}

		// Check for null bytes which are invalid in paths
		if strings.ContainsRune(p.value, '\x00') {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "path contains invalid null character",
			})
		}

		// Reasonable path length limit (most filesystems have limits around 4096)
		const maxPathLength = 4096
		if len(p.value) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}
