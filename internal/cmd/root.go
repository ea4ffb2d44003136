// Package cmd wires the ralph CLI: configuring and launching opencode runs
// against a target project folder and inspecting what they left behind.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ralphcodes/ralph/internal/config"
	"github.com/ralphcodes/ralph/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "Run opencode in a guarded loop against a project folder",
	Long: `Ralph points the opencode CLI at a project folder and drives it in a
guarded loop: each iteration does one unit of work and reports back through
marker files (checkpoint, complete, blocked). Ralph backs up anything it
would overwrite, scaffolds the plan and progress files the agent maintains,
and stops the loop when the task finishes, blocks, or runs out of attempts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/ralph/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RALPH")
	// Replace dots with underscores for nested keys in env vars
	// e.g., RALPH_LOOP_MAX_ATTEMPTS for loop.max_attempts
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newLogger builds the file logger from config. Logging failures never
// block a run; the nop logger is the fallback.
func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.Nop()
	}
	logger, err := logging.New(cfg.Paths.ResolveStateDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return logging.Nop()
	}
	return logger
}
