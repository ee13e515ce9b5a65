package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/sieve"
	"github.com/aretw0/sieve/internal/cli"
	"github.com/aretw0/sieve/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Run the missing-value pipeline once",
	Long: `Runs load, inspect, clean (only when values are missing), summarize and report
over the CSV file at path, or over the configured source when path is omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, appOptions(cmd))
	if err != nil {
		return err
	}
	defer app.Close()

	if tui.IsTerminal(os.Stdout) {
		tui.PrintBanner(os.Stdout, sieve.Version)
	}

	source := ""
	if len(args) > 0 {
		source = args[0]
	}
	return app.Run(ctx, source)
}
