package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/sieve/internal/cli"
	"github.com/aretw0/sieve/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the pipeline to AI agents as MCP tools: run_pipeline, get_report and get_graph.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Stdout carries JSON-RPC, so step output is dropped.
		opts := appOptions(cmd)
		opts.Stdout = io.Discard

		app, err := cli.NewApp(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer app.Close()
		slog.SetDefault(app.Logger)

		srv := mcp.NewServer(app.Engine, app.Store, mcp.WithDataDir(app.Config.Server.DataDir))

		switch transport {
		case "stdio":
			log.SetOutput(os.Stderr)
			slog.Info("Starting Sieve MCP Server (Stdio)...")
			return srv.ServeStdio()
		case "sse":
			slog.Info("Starting Sieve MCP Server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			slog.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
