package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models opencode reports",
	Long: `Models runs ` + "`opencode models`" + ` and prints the available model names,
recently used models first.`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), app.cfg.Opencode.ModelsTimeout())
	defer cancel()

	models, err := app.client.Models(ctx)
	if err != nil {
		return err
	}

	for _, model := range app.hist.SortModels(models) {
		cmd.Println(model)
	}
	return nil
}
