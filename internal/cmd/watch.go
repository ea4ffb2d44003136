package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ralphcodes/ralph/internal/marker"
)

var watchCmd = &cobra.Command{
	Use:   "watch <folder>",
	Short: "Block until a marker file appears in a folder",
	Long: `Watch waits for RALPH-COMPLETE.md, RALPH-BLOCKED.md, or
RALPH-CHECKPOINT.md to appear in the folder and prints which one arrived.
Useful when driving opencode by hand or from a script: the exit code is 0
for complete, 1 for blocked, and 2 for checkpoint.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("timeout", 0, "give up after this long (0 = wait forever)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	folder, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	w := marker.NewWatcher(folder, app.cfg.Watcher.PollInterval(),
		marker.WithEvents(app.cfg.Watcher.UseFsnotify),
		marker.WithLogger(app.logger))

	start := time.Now()
	k, err := w.Wait(ctx)
	if err != nil {
		return fmt.Errorf("no marker after %s: %w", time.Since(start).Round(time.Second), err)
	}

	cmd.Println(k.File())
	switch k {
	case marker.Blocked:
		return exitError{code: 1}
	case marker.Checkpoint:
		return exitError{code: 2}
	}
	return nil
}

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// AsExitCode reports whether err is a bare exit-code request and, if so,
// which code.
func AsExitCode(err error) (int, bool) {
	e, ok := err.(exitError)
	return e.code, ok
}
