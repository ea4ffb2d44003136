// Package config defines Ralph's configuration, loaded through viper from
// a yaml config file, RALPH_* environment variables, and defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Ralph configuration
type Config struct {
	Loop     LoopConfig     `mapstructure:"loop"`
	Opencode OpencodeConfig `mapstructure:"opencode"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Backup   BackupConfig   `mapstructure:"backup"`
	History  HistoryConfig  `mapstructure:"history"`
	Viewer   ViewerConfig   `mapstructure:"viewer"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Paths    PathsConfig    `mapstructure:"paths"`
}

// LoopConfig controls the guarded iteration loop
type LoopConfig struct {
	// MaxAttempts is the safety limit for loop iterations (default: 40)
	MaxAttempts int `mapstructure:"max_attempts"`
	// SleepSeconds is the delay between attempts and after checkpoints (default: 2)
	SleepSeconds int `mapstructure:"sleep_seconds"`
}

// OpencodeConfig controls how the external opencode CLI is invoked
type OpencodeConfig struct {
	// Binary is the opencode executable name or path (default: "opencode")
	Binary string `mapstructure:"binary"`
	// LogLevel is passed to opencode via --log-level (default: "INFO")
	LogLevel string `mapstructure:"log_level"`
	// Model is the default model when --model is not given
	Model string `mapstructure:"model"`
	// Variant is the default model variant ("" omits the flag)
	// Options: "", "minimal", "high", "max"
	Variant string `mapstructure:"variant"`
	// CopyConfig copies opencode.json into the target folder when it is
	// absent there (default: true)
	CopyConfig bool `mapstructure:"copy_config"`
	// ModelsTimeoutSeconds bounds `opencode models` invocations (default: 30)
	ModelsTimeoutSeconds int `mapstructure:"models_timeout_seconds"`
}

// WatcherConfig controls marker file detection
type WatcherConfig struct {
	// PollIntervalMs is how often the target directory is polled for
	// marker files (default: 500)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// UseFsnotify additionally subscribes to filesystem events so markers
	// are noticed before the next poll tick (default: true)
	UseFsnotify bool `mapstructure:"use_fsnotify"`
}

// BackupConfig controls backup behavior
type BackupConfig struct {
	// Dir overrides the backup root directory. Empty means
	// <stateDir>/backups. Supports ~ for home directory expansion.
	Dir string `mapstructure:"dir"`
}

// HistoryConfig controls recent-item tracking
type HistoryConfig struct {
	// MaxFolders is how many recent target folders to remember (default: 5)
	MaxFolders int `mapstructure:"max_folders"`
	// MaxModels is how many recently used models to remember (default: 10)
	MaxModels int `mapstructure:"max_models"`
}

// ViewerConfig controls the results viewer
type ViewerConfig struct {
	// Style is the glamour markdown style (default: "dark")
	Style string `mapstructure:"style"`
	// WrapWidth is the render width for markdown, 0 = terminal width (default: 0)
	WrapWidth int `mapstructure:"wrap_width"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where Ralph stores data
type PathsConfig struct {
	// StateDir overrides the state directory holding logs, history, and
	// backups. Empty means the XDG state dir (~/.local/state/ralph).
	// Supports ~ for home directory expansion.
	StateDir string `mapstructure:"state_dir"`
}

// PollInterval returns the watcher poll interval as a time.Duration
func (w *WatcherConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMs) * time.Millisecond
}

// Sleep returns the loop sleep as a time.Duration
func (l *LoopConfig) Sleep() time.Duration {
	return time.Duration(l.SleepSeconds) * time.Second
}

// ModelsTimeout returns the models listing timeout as a time.Duration
func (o *OpencodeConfig) ModelsTimeout() time.Duration {
	return time.Duration(o.ModelsTimeoutSeconds) * time.Second
}

// expandPath resolves ~ and relative paths against baseDir.
func expandPath(path, baseDir string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// ResolveStateDir returns the resolved state directory.
// Empty StateDir falls back to $XDG_STATE_HOME/ralph or ~/.local/state/ralph.
func (p *PathsConfig) ResolveStateDir() string {
	if p.StateDir != "" {
		cwd, _ := os.Getwd()
		return expandPath(p.StateDir, cwd)
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "ralph")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ralph"
	}
	return filepath.Join(home, ".local", "state", "ralph")
}

// ResolveBackupDir returns the resolved backup root directory.
// Empty Dir falls back to <stateDir>/backups.
func (b *BackupConfig) ResolveBackupDir(stateDir string) string {
	if b.Dir == "" {
		return filepath.Join(stateDir, "backups")
	}
	return expandPath(b.Dir, stateDir)
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Loop: LoopConfig{
			MaxAttempts:  40,
			SleepSeconds: 2,
		},
		Opencode: OpencodeConfig{
			Binary:               "opencode",
			LogLevel:             "INFO",
			Model:                "",
			Variant:              "",
			CopyConfig:           true,
			ModelsTimeoutSeconds: 30,
		},
		Watcher: WatcherConfig{
			PollIntervalMs: 500,
			UseFsnotify:    true,
		},
		Backup: BackupConfig{
			Dir: "", // Empty means use default: <stateDir>/backups
		},
		History: HistoryConfig{
			MaxFolders: 5,
			MaxModels:  10,
		},
		Viewer: ViewerConfig{
			Style:     "dark",
			WrapWidth: 0,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			StateDir: "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("loop.max_attempts", defaults.Loop.MaxAttempts)
	viper.SetDefault("loop.sleep_seconds", defaults.Loop.SleepSeconds)

	viper.SetDefault("opencode.binary", defaults.Opencode.Binary)
	viper.SetDefault("opencode.log_level", defaults.Opencode.LogLevel)
	viper.SetDefault("opencode.model", defaults.Opencode.Model)
	viper.SetDefault("opencode.variant", defaults.Opencode.Variant)
	viper.SetDefault("opencode.copy_config", defaults.Opencode.CopyConfig)
	viper.SetDefault("opencode.models_timeout_seconds", defaults.Opencode.ModelsTimeoutSeconds)

	viper.SetDefault("watcher.poll_interval_ms", defaults.Watcher.PollIntervalMs)
	viper.SetDefault("watcher.use_fsnotify", defaults.Watcher.UseFsnotify)

	viper.SetDefault("backup.dir", defaults.Backup.Dir)

	viper.SetDefault("history.max_folders", defaults.History.MaxFolders)
	viper.SetDefault("history.max_models", defaults.History.MaxModels)

	viper.SetDefault("viewer.style", defaults.Viewer.Style)
	viper.SetDefault("viewer.wrap_width", defaults.Viewer.WrapWidth)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	viper.SetDefault("paths.state_dir", defaults.Paths.StateDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ralph")
	}
	// Fall back to ~/.config/ralph
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ralph"
	}
	return filepath.Join(home, ".config", "ralph")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidVariants returns the list of valid opencode model variants.
// The empty string means "no variant flag".
func ValidVariants() []string {
	return []string{"", "minimal", "high", "max"}
}

// IsValidVariant checks if the given variant is valid
func IsValidVariant(variant string) bool {
	for _, valid := range ValidVariants() {
		if variant == valid {
			return true
		}
	}
	return false
}
