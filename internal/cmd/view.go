package cmd

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ralphcodes/ralph/internal/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view [folder]",
	Short: "Open the results viewer for a folder or a backup",
	Long: `View renders RALPH-COMPLETE.md and RALPH-PROGRESS.md as styled markdown
in a tabbed, scrollable viewer. With no argument it views the current
directory; with --backup it views the archived artifacts of a finished run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewCmd.Flags().String("backup", "", "view a backup by ID instead of a folder")
}

func runView(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var dir string
	if backupID, _ := cmd.Flags().GetString("backup"); backupID != "" {
		info, err := app.backups.Get(backupID)
		if err != nil {
			return err
		}
		dir = info.Path
	} else {
		target := "."
		if len(args) == 1 {
			target = args[0]
		}
		dir, err = filepath.Abs(target)
		if err != nil {
			return err
		}
	}

	viewer := tui.NewViewer(dir, app.cfg.Viewer.Style, app.cfg.Viewer.WrapWidth)
	_, err = tea.NewProgram(viewer, tea.WithAltScreen()).Run()
	return err
}
