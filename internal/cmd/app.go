package cmd

import (
	"github.com/ralphcodes/ralph/internal/backup"
	"github.com/ralphcodes/ralph/internal/config"
	"github.com/ralphcodes/ralph/internal/history"
	"github.com/ralphcodes/ralph/internal/logging"
	"github.com/ralphcodes/ralph/internal/opencode"
	"github.com/ralphcodes/ralph/internal/runner"
)

// app bundles the long-lived pieces every command needs: config, logger,
// backup manager, history store, opencode client, and the task manager.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	stateDir string
	backups  *backup.Manager
	hist     *history.Store
	client   *opencode.Client
	manager  *runner.Manager
}

// newApp loads config and assembles the application services.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)
	stateDir := cfg.Paths.ResolveStateDir()

	backups, err := backup.NewManager(cfg.Backup.ResolveBackupDir(stateDir), logger)
	if err != nil {
		logger.Close()
		return nil, err
	}

	hist, err := history.Load(stateDir, cfg.History.MaxFolders, cfg.History.MaxModels)
	if err != nil {
		logger.Close()
		return nil, err
	}

	client := opencode.NewClient(cfg.Opencode.Binary, cfg.Opencode.LogLevel, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		stateDir: stateDir,
		backups:  backups,
		hist:     hist,
		client:   client,
		manager:  runner.NewManager(stateDir, backups, hist, client, logger),
	}, nil
}

// Close flushes the logger.
func (a *app) Close() {
	_ = a.logger.Close()
}
