package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ralphcodes/ralph/internal/config"
	"github.com/ralphcodes/ralph/internal/errors"
	"github.com/ralphcodes/ralph/internal/runner"
	"github.com/ralphcodes/ralph/internal/tui"
	"github.com/ralphcodes/ralph/internal/workspace"
)

var runCmd = &cobra.Command{
	Use:   "run <folder>",
	Short: "Launch the opencode loop against a project folder",
	Long: `Run locks the target folder, backs up any marker files already there,
writes the task design as RALPH-DESIGN.md, scaffolds the plan and progress
files, and then invokes opencode once per iteration until the agent writes
RALPH-COMPLETE.md or RALPH-BLOCKED.md, the attempt limit is reached, or the
run is stopped.

The design comes from --design, --design-file, or an existing
RALPH-DESIGN.md in the target folder, in that order.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("design", "", "task design text")
	runCmd.Flags().String("design-file", "", "file containing the task design")
	runCmd.Flags().StringP("model", "m", "", "opencode model (default from config)")
	runCmd.Flags().String("variant", "", "model variant: minimal, high, or max")
	runCmd.Flags().Int("max-attempts", 0, "loop attempt limit (default from config)")
	runCmd.Flags().Int("sleep", 0, "seconds between iterations (default from config)")
	runCmd.Flags().String("specs", "", "optional specs file copied into the target as RALPH-SPECS.md")
	runCmd.Flags().String("opencode-json", "", "opencode.json to copy into targets that have none")
	runCmd.Flags().Bool("copy-opencode-json", true, "copy opencode.json into the target when it has none")
	runCmd.Flags().Bool("plain", false, "line-oriented output instead of the interactive view")
}

func runRun(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	folder, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	design, err := resolveDesign(cmd, folder)
	if err != nil {
		return err
	}

	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = app.cfg.Opencode.Model
	}
	if model == "" {
		return errors.NewValidationError("no model given; pass --model or set opencode.model in the config").
			WithField("model")
	}

	variant, _ := cmd.Flags().GetString("variant")
	if !cmd.Flags().Changed("variant") {
		variant = app.cfg.Opencode.Variant
	}
	if !config.IsValidVariant(variant) {
		return errors.NewValidationError(
			fmt.Sprintf("invalid variant %q (valid: minimal, high, max)", variant)).
			WithField("variant")
	}

	maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
	if maxAttempts <= 0 {
		maxAttempts = app.cfg.Loop.MaxAttempts
	}
	sleepSeconds, _ := cmd.Flags().GetInt("sleep")
	if !cmd.Flags().Changed("sleep") {
		sleepSeconds = app.cfg.Loop.SleepSeconds
	}

	copyConfig, _ := cmd.Flags().GetBool("copy-opencode-json")
	if !cmd.Flags().Changed("copy-opencode-json") {
		copyConfig = app.cfg.Opencode.CopyConfig
	}
	opencodeJSON, _ := cmd.Flags().GetString("opencode-json")
	if opencodeJSON == "" {
		opencodeJSON = filepath.Join(config.ConfigDir(), workspace.OpencodeConfigFile)
	}
	specs, _ := cmd.Flags().GetString("specs")

	// Fail before touching the target if opencode is not installed.
	if _, err := app.client.Resolve(); err != nil {
		return err
	}

	task, err := app.manager.Start(runner.StartRequest{
		Folder:               folder,
		Design:               design,
		Model:                model,
		Variant:              variant,
		SpecsSource:          specs,
		OpencodeConfigSource: opencodeJSON,
		CopyOpencodeConfig:   copyConfig,
		MaxAttempts:          maxAttempts,
		Sleep:                time.Duration(sleepSeconds) * time.Second,
	})
	if err != nil {
		return err
	}

	plain, _ := cmd.Flags().GetBool("plain")
	if plain {
		err = followPlain(task)
	} else {
		err = followInteractive(task)
	}

	app.manager.Sweep()
	if err != nil {
		return err
	}
	return reportFinal(task, app)
}

// resolveDesign picks the design content: --design, --design-file, or the
// RALPH-DESIGN.md already in the target folder.
func resolveDesign(cmd *cobra.Command, folder string) (string, error) {
	if design, _ := cmd.Flags().GetString("design"); design != "" {
		return design, nil
	}
	if file, _ := cmd.Flags().GetString("design-file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read design file: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(filepath.Join(folder, workspace.DesignFile))
	if err == nil && strings.TrimSpace(string(data)) != "" {
		fmt.Fprintf(os.Stderr, "reusing existing %s from %s\n", workspace.DesignFile, folder)
		return string(data), nil
	}
	return "", errors.Wrap(errors.ErrDesignMissing, "pass --design or --design-file")
}

// followInteractive attaches the live bubbletea view to the run. Quitting
// the view while the loop is still going stops the run.
func followInteractive(task *runner.Task) error {
	p := tea.NewProgram(tui.NewRunView(task, true))
	if _, err := p.Run(); err != nil {
		return err
	}
	if !task.Runner.Snapshot().Status.Terminal() {
		task.Runner.Stop()
		task.Runner.Wait()
	}
	return nil
}

// followPlain tails the run on stdout: one line per status change, a y/N
// prompt when an iteration ends without a checkpoint, and Ctrl-C to stop
// (twice to force-kill).
func followPlain(task *runner.Task) error {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "stopping... (Ctrl-C again to force-kill)")
		task.Runner.Stop()
		<-sigCh
		task.Runner.ForceKill()
	}()

	stdin := bufio.NewReader(os.Stdin)
	var last runner.Snapshot
	for {
		snap := task.Runner.Snapshot()
		if snap.Status != last.Status || snap.Attempt != last.Attempt {
			fmt.Printf("[%s] attempt %d/%d\n", snap.Status, snap.Attempt, snap.MaxAttempts)
		}
		last = snap

		if snap.Status.Terminal() {
			return nil
		}
		if snap.Status == runner.StatusMissingCheckpoint {
			fmt.Print("no checkpoint was written this iteration; continue? [y/N] ")
			line, err := stdin.ReadString('\n')
			if err != nil {
				task.Runner.Decide(false)
			} else {
				answer := strings.ToLower(strings.TrimSpace(line))
				task.Runner.Decide(answer == "y" || answer == "yes")
			}
		}

		select {
		case <-task.Runner.Done():
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// reportFinal prints where the run ended up and returns an error for
// failed runs so the process exits non-zero.
func reportFinal(task *runner.Task, app *app) error {
	snap := task.Runner.Snapshot()
	fmt.Printf("run %s: %s\n", task.ID, snap.Status)
	fmt.Printf("artifacts: %s\n", app.backups.Path(task.BackupID))

	switch snap.Status {
	case runner.StatusCompleted:
		fmt.Printf("view the results with: ralph view --backup %s\n", task.BackupID)
		return nil
	case runner.StatusFailed:
		if snap.Err != "" {
			return fmt.Errorf("run failed: %s", snap.Err)
		}
		return fmt.Errorf("run failed")
	default:
		return nil
	}
}
