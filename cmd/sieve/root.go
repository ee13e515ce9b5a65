package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/sieve/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sieve [path]",
	Short: "Sieve finds and fills missing values in tabular data",
	Long: `Sieve loads a CSV file, checks it for missing values, fills numeric gaps
with column means when there are any, and prints summary statistics.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPipeline,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "sieve.yaml", "YAML configuration file")
	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file with SIEVE_* overrides")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// appOptions reads the persistent flags into cli.Options.
func appOptions(cmd *cobra.Command) cli.Options {
	configPath, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.Options{
		ConfigPath: configPath,
		EnvFile:    envFile,
		Debug:      debug,
	}
}
