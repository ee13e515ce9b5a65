package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/sieve/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the pipeline graph visualization",
	Long: `Compiles the pipeline and outputs a Mermaid diagram (graph TD) of its steps.
With --out the diagram is written to a file instead; .png and .svg targets are
rendered through the configured Mermaid renderer.

With --run the pipeline is executed once over the given file first, and the
diagram highlights the steps it visited and the step that failed, if any.
Progress lines then go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		asJSON, _ := cmd.Flags().GetBool("json")
		traced := cmd.Flags().Changed("run")
		source, _ := cmd.Flags().GetString("run")

		opts := appOptions(cmd)
		if traced {
			opts.Stdout = os.Stderr
		}
		app, err := cli.NewApp(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer app.Close()

		if traced {
			src, runErr := app.TraceRun(cmd.Context(), source)
			if out != "" {
				if err := app.WriteDiagram(cmd.Context(), out, src); err != nil {
					return err
				}
			} else {
				fmt.Print(src)
			}
			return runErr
		}

		switch {
		case asJSON:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(app.Engine.Inspect())
		case out != "":
			return app.SaveDiagram(cmd.Context(), out)
		default:
			fmt.Print(app.Engine.Mermaid())
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("out", "o", "", "Write the diagram to this file (.mmd, .png or .svg)")
	graphCmd.Flags().Bool("json", false, "Print the compiled steps as JSON")
	graphCmd.Flags().String("run", "", "Run the pipeline over this file and highlight the path it took")
	graphCmd.MarkFlagsMutuallyExclusive("run", "json")
}
