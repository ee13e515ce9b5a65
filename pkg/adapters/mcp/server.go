package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/sieve"
	"github.com/aretw0/sieve/internal/sanitize"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/graph"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource exposing the compiled pipeline.
const GraphURI = "sieve://graph"

// Engine defines the interface required by the MCP server to run the pipeline.
type Engine interface {
	RunReport(ctx context.Context, sourcePath string) (*domain.Report, error)
	Inspect() []graph.NodeInfo
	Mermaid() string
}

// RunArgs are the arguments of the run_pipeline tool.
type RunArgs struct {
	SourcePath string `json:"source_path"`
}

// ReportArgs are the arguments of the get_report tool.
type ReportArgs struct {
	RunID string `json:"run_id"`
}

// Server wraps the sieve Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	store     ports.ReportStore
	dataDir   string
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithDataDir confines run_pipeline to files under dir. Without it, paths
// are confined to the working directory.
func WithDataDir(dir string) Option {
	return func(s *Server) {
		s.dataDir = dir
	}
}

// NewServer creates a new MCP Server instance. The store may be nil, in
// which case get_report always fails.
func NewServer(engine Engine, store ports.ReportStore, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		store:  store,
		mcpServer: server.NewMCPServer("sieve-mcp", strings.TrimSpace(sieve.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP protocol over SSE until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	runTool := mcp.NewTool("run_pipeline",
		mcp.WithDescription("Run the missing-value pipeline over a CSV file and return its report."),
		mcp.WithString("source_path", mcp.Required(), mcp.Description("Path of the CSV file, relative to the server data directory")),
		mcp.WithOutputSchema[domain.Report](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunPipeline))

	reportTool := mcp.NewTool("get_report",
		mcp.WithDescription("Fetch the stored report of a previous run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("ID of the run")),
		mcp.WithOutputSchema[domain.Report](),
	)
	s.mcpServer.AddTool(reportTool, mcp.NewStructuredToolHandler(s.handleGetReport))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the pipeline graph as a Mermaid flowchart."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(s.engine.Mermaid()), nil
	})
}

func (s *Server) handleRunPipeline(ctx context.Context, _ mcp.CallToolRequest, args RunArgs) (domain.Report, error) {
	source, err := sanitize.Path(s.dataDir, args.SourcePath)
	if err != nil {
		slog.Warn("MCP run_pipeline: Input rejected", "error", err, "size", len(args.SourcePath))
		return domain.Report{}, fmt.Errorf("source_path rejected: %w", err)
	}

	report, err := s.engine.RunReport(ctx, source)
	if err != nil {
		slog.Warn("MCP run_pipeline failed", "source", source, "error", err)
		return domain.Report{}, err
	}
	return *report, nil
}

func (s *Server) handleGetReport(ctx context.Context, _ mcp.CallToolRequest, args ReportArgs) (domain.Report, error) {
	if s.store == nil {
		return domain.Report{}, errors.New("no report store configured")
	}
	runID, err := sanitize.Input(args.RunID)
	if err != nil {
		return domain.Report{}, fmt.Errorf("run_id rejected: %w", err)
	}
	report, err := s.store.Load(ctx, runID)
	if err != nil {
		return domain.Report{}, err
	}
	return *report, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Pipeline Graph",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Inspect())
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
