package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ralphcodes/ralph/internal/config"
	"github.com/ralphcodes/ralph/internal/opencode"
	"github.com/ralphcodes/ralph/internal/workspace"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Ralph's config file and opencode permission presets",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println(config.ConfigFile())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE:  runConfigInit,
}

var configPresetCmd = &cobra.Command{
	Use:   "preset [name]",
	Short: "Apply a permission preset to an opencode.json",
	Long: `Preset writes one of the built-in permission blocks into an
opencode.json. With no name it lists the available presets. By default the
preset merges into any existing permission block; --replace discards it.
--agent scopes the permissions to one agent instead of the whole file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigPreset,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPresetCmd)

	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")

	configPresetCmd.Flags().String("file", workspace.OpencodeConfigFile, "opencode.json to modify")
	configPresetCmd.Flags().Bool("replace", false, "replace the existing permission block instead of merging")
	configPresetCmd.Flags().String("agent", "", "write an agent-scoped permission override")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ConfigFile()
	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := yaml.Marshal(defaultConfigDoc())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", path)
	return nil
}

// defaultConfigDoc mirrors config.Default() under the keys the config file
// uses.
func defaultConfigDoc() map[string]any {
	d := config.Default()
	return map[string]any{
		"loop": map[string]any{
			"max_attempts":  d.Loop.MaxAttempts,
			"sleep_seconds": d.Loop.SleepSeconds,
		},
		"opencode": map[string]any{
			"binary":                 d.Opencode.Binary,
			"log_level":              d.Opencode.LogLevel,
			"model":                  d.Opencode.Model,
			"variant":                d.Opencode.Variant,
			"copy_config":            d.Opencode.CopyConfig,
			"models_timeout_seconds": d.Opencode.ModelsTimeoutSeconds,
		},
		"watcher": map[string]any{
			"poll_interval_ms": d.Watcher.PollIntervalMs,
			"use_fsnotify":     d.Watcher.UseFsnotify,
		},
		"backup": map[string]any{
			"dir": d.Backup.Dir,
		},
		"history": map[string]any{
			"max_folders": d.History.MaxFolders,
			"max_models":  d.History.MaxModels,
		},
		"viewer": map[string]any{
			"style":      d.Viewer.Style,
			"wrap_width": d.Viewer.WrapWidth,
		},
		"logging": map[string]any{
			"enabled":     d.Logging.Enabled,
			"level":       d.Logging.Level,
			"max_size_mb": d.Logging.MaxSizeMB,
			"max_backups": d.Logging.MaxBackups,
		},
		"paths": map[string]any{
			"state_dir": d.Paths.StateDir,
		},
	}
}

func runConfigPreset(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listPresets(cmd)
	}

	preset, err := opencode.LookupPreset(args[0])
	if err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("file")
	strategy := opencode.Merge
	if replace, _ := cmd.Flags().GetBool("replace"); replace {
		strategy = opencode.Replace
	}

	doc, err := os.ReadFile(file)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	var out []byte
	if agent, _ := cmd.Flags().GetString("agent"); agent != "" {
		out, err = opencode.ApplyAgentPreset(doc, agent, strategy)
	} else {
		out, err = opencode.ApplyPreset(doc, preset, strategy)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(file, out, 0o644); err != nil {
		return err
	}
	cmd.Printf("applied %s to %s\n", preset.Name, file)
	return nil
}

func listPresets(cmd *cobra.Command) error {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Description"})
	for _, name := range opencode.PresetNames() {
		p, err := opencode.LookupPreset(name)
		if err != nil {
			continue
		}
		t.AppendRow(table.Row{p.Name, p.Description})
	}
	t.Render()
	return nil
}
