package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Inspect and restore run backups",
	Long: `Every run gets a backup folder holding the submitted design, any files
the run would have overwritten, and — once the run finishes — its
artifacts. These commands list those folders and copy their contents back
out.`,
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	RunE:  runBackupsList,
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore <id> [dest]",
	Short: "Copy a backup's files into a folder",
	Long: `Restore copies a backup's files into dest (default: the original target
folder). Run artifacts win over the pre-run snapshots saved with the
existing_ prefix; backup_info.txt stays behind.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runBackupsRestore,
}

func init() {
	rootCmd.AddCommand(backupsCmd)
	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsRestoreCmd)
}

func runBackupsList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	infos, err := app.backups.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		cmd.Printf("no backups under %s\n", app.backups.Root())
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Created", "Target"})
	for _, info := range infos {
		t.AppendRow(table.Row{info.ID, info.Created.Format(time.RFC3339), info.Target})
	}
	t.Render()
	return nil
}

func runBackupsRestore(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	id := args[0]
	info, err := app.backups.Get(id)
	if err != nil {
		return err
	}

	dest := info.Target
	if len(args) == 2 {
		dest, err = filepath.Abs(args[1])
		if err != nil {
			return err
		}
	}
	if dest == "" {
		return fmt.Errorf("backup %s has no recorded target; pass a destination", id)
	}

	if err := app.backups.Restore(id, dest); err != nil {
		return err
	}
	cmd.Printf("restored backup %s to %s\n", id, dest)
	return nil
}
