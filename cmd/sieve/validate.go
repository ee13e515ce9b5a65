package main

import (
	"fmt"

	"github.com/aretw0/sieve/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the pipeline graph for consistency",
	Long: `Builds and compiles the pipeline with the current configuration and reports
dead ends, cycles, undispatched labels or branches that never rejoin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.NewApp(cmd.Context(), appOptions(cmd))
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		defer app.Close()

		fmt.Printf("Graph is valid! ✅ (%d steps)\n", len(app.Engine.Inspect()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
