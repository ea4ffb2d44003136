package cmd

import (
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ralphcodes/ralph/internal/marker"
	"github.com/ralphcodes/ralph/internal/util"
	"github.com/ralphcodes/ralph/internal/workspace"
)

// folderColumnWidth caps the folder column so one deep path does not blow
// out the table.
const folderColumnWidth = 60

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of recently used target folders",
	Long: `Status inspects the folders from recent runs and reports what their
marker files say: whether the last run completed, blocked, left a
checkpoint, or a RALPH-STOP file is present.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	folders := app.hist.Folders()
	if len(folders) == 0 {
		cmd.Println("no recent folders; start a run with: ralph run <folder>")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Folder", "State", "Design", "Stop"})

	for _, folder := range folders {
		t.AppendRow(table.Row{
			util.TruncateString(folder, folderColumnWidth),
			folderState(folder),
			yesNo(hasFile(folder, workspace.DesignFile)),
			yesNo(marker.StopRequested(folder)),
		})
	}
	t.Render()
	return nil
}

// folderState summarizes a folder from its marker files.
func folderState(folder string) string {
	if _, err := os.Stat(folder); err != nil {
		return "missing"
	}
	if k := marker.Detect(folder); k != marker.None {
		return k.String()
	}
	return "idle"
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
