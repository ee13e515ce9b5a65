package sieve

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/sieve/internal/logging"
	"github.com/aretw0/sieve/internal/pipeline"
	"github.com/aretw0/sieve/internal/presentation/diagram"
	"github.com/aretw0/sieve/internal/runtime"
	"github.com/aretw0/sieve/internal/steps"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/graph"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/google/uuid"
)

// Engine is the high-level entry point of the sieve library. It owns the
// compiled missing-value pipeline and runs it against tabular files.
type Engine struct {
	graph   *graph.Graph[domain.State]
	runtime *runtime.Engine[domain.State]
	store   ports.ReportStore
	logger  *slog.Logger

	hooks     domain.LifecycleHooks
	console   io.Writer
	report    io.Writer
	render    steps.SummaryRenderer
	outliers  bool
	iqrFactor float64
	detailed  bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithOutput sets where progress lines and the final summary are written.
// Both default to io.Discard.
func WithOutput(console, report io.Writer) Option {
	return func(e *Engine) {
		e.console = console
		e.report = report
	}
}

// WithSummaryRenderer formats the summary before it is printed.
func WithSummaryRenderer(render steps.SummaryRenderer) Option {
	return func(e *Engine) {
		e.render = render
	}
}

// WithReportStore persists the report of every successful run.
func WithReportStore(store ports.ReportStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithOutlierRemoval enables the IQR outlier filter with fence factor k.
// A non-positive k uses the default of 1.5.
func WithOutlierRemoval(k float64) Option {
	return func(e *Engine) {
		e.outliers = true
		e.iqrFactor = k
	}
}

// WithDetailedSummary adds column info and missing value counts to the summary.
func WithDetailedSummary(detailed bool) Option {
	return func(e *Engine) {
		e.detailed = detailed
	}
}

// New builds and compiles the pipeline. It fails only if the graph is
// malformed, which makes it a configuration error.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	eng.logger = eng.logger.With("graph", "missing_values")

	set := steps.New(
		steps.WithConsole(eng.console),
		steps.WithReportWriter(eng.report),
		steps.WithLogger(eng.logger),
		steps.WithReportStore(eng.store),
		steps.WithSummaryRenderer(eng.render),
		steps.WithDetailedSummary(eng.detailed),
		steps.WithIQRFactor(eng.iqrFactor),
	)

	g, err := pipeline.Build(set, pipeline.WithOutlierRemoval(eng.outliers))
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	eng.graph = g

	eng.runtime = runtime.NewEngine(g,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
	)
	return eng, nil
}

// Run executes the pipeline once over the file at sourcePath and returns
// the final state. A run ID is attached to ctx unless one is already set.
func (e *Engine) Run(ctx context.Context, sourcePath string) (domain.State, error) {
	if domain.RunIDFromContext(ctx) == "" {
		ctx = domain.ContextWithRunID(ctx, uuid.NewString())
	}
	runID := domain.RunIDFromContext(ctx)

	e.logger.DebugContext(ctx, "run started", "run_id", runID, "source", sourcePath)
	final, err := e.runtime.Run(ctx, domain.NewState(sourcePath))
	if err != nil {
		e.logger.DebugContext(ctx, "run failed", "run_id", runID, "error", err)
		return final, err
	}
	e.logger.DebugContext(ctx, "run finished", "run_id", runID, "missing", final.MissingCount)
	return final, nil
}

// RunReport executes the pipeline and returns the report of the run.
func (e *Engine) RunReport(ctx context.Context, sourcePath string) (*domain.Report, error) {
	runID := domain.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = domain.ContextWithRunID(ctx, runID)
	}

	final, err := e.Run(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	return domain.NewReport(runID, final), nil
}

// Store returns the configured report store, or nil.
func (e *Engine) Store() ports.ReportStore {
	return e.store
}

// Inspect returns the compiled graph's steps in execution order.
func (e *Engine) Inspect() []graph.NodeInfo {
	return e.graph.Nodes()
}

// Mermaid renders the compiled graph as a Mermaid flowchart.
func (e *Engine) Mermaid() string {
	return diagram.GenerateMermaid(e.graph.Nodes())
}
