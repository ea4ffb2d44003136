package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ralphcodes/ralph/internal/config"
	"github.com/ralphcodes/ralph/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show Ralph's log file",
	Long: `Logs prints the last lines of Ralph's log file. With --path it prints
only the file location.`,
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntP("tail", "n", 50, "number of lines to show")
	logsCmd.Flags().Bool("path", false, "print the log file path and exit")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.Paths.ResolveStateDir(), logging.LogFileName)

	if pathOnly, _ := cmd.Flags().GetBool("path"); pathOnly {
		cmd.Println(path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cmd.Printf("no log file at %s\n", path)
			return nil
		}
		return fmt.Errorf("failed to read log file: %w", err)
	}

	n, _ := cmd.Flags().GetInt("tail")
	for _, line := range tailLines(string(data), n) {
		cmd.Println(line)
	}
	return nil
}

// tailLines returns the last n non-empty-terminated lines of text.
func tailLines(text string, n int) []string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}
