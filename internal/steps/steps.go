// Package steps implements the steps of the missing-value pipeline and the
// router that decides whether the cleaning step runs.
package steps

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/sieve/internal/logging"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/aretw0/sieve/pkg/table"
	"github.com/google/uuid"
)

// Step names as registered in the pipeline graph.
const (
	Load           = "load"
	Inspect        = "inspect"
	Clean          = "clean"
	RemoveOutliers = "remove_outliers"
	Summarize      = "summarize"
	Report         = "report"
)

// SummaryRenderer turns the plain summary into its display form.
type SummaryRenderer func(summary string) (string, error)

// Set holds the collaborators shared by the pipeline steps.
type Set struct {
	console   io.Writer
	report    io.Writer
	logger    *slog.Logger
	store     ports.ReportStore
	render    SummaryRenderer
	detailed  bool
	iqrFactor float64
}

// Option configures a Set.
type Option func(*Set)

// WithConsole sets the writer for progress lines. A nil writer is ignored.
func WithConsole(w io.Writer) Option {
	return func(s *Set) {
		if w != nil {
			s.console = w
		}
	}
}

// WithReportWriter sets the writer the report sink prints the summary to.
// A nil writer is ignored.
func WithReportWriter(w io.Writer) Option {
	return func(s *Set) {
		if w != nil {
			s.report = w
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Set) { s.logger = logger }
}

// WithReportStore makes the report sink persist every finished run.
func WithReportStore(store ports.ReportStore) Option {
	return func(s *Set) { s.store = store }
}

// WithSummaryRenderer formats the summary before the report sink prints it.
func WithSummaryRenderer(render SummaryRenderer) Option {
	return func(s *Set) { s.render = render }
}

// WithDetailedSummary appends column info and missing value counts to the summary.
func WithDetailedSummary(detailed bool) Option {
	return func(s *Set) { s.detailed = detailed }
}

// WithIQRFactor sets the fence multiplier used by RemoveOutliers.
func WithIQRFactor(k float64) Option {
	return func(s *Set) {
		if k > 0 {
			s.iqrFactor = k
		}
	}
}

// New creates a step set. Output defaults to io.Discard.
func New(opts ...Option) *Set {
	s := &Set{
		console:   io.Discard,
		report:    io.Discard,
		iqrFactor: table.DefaultIQRFactor,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	return s
}

// Load reads the source file into the state's table.
func (s *Set) Load(ctx context.Context, st domain.State) (domain.State, error) {
	t, err := table.ReadFile(st.SourcePath)
	if err != nil {
		return st, &domain.DataLoadError{Path: st.SourcePath, Err: err}
	}

	s.logger.DebugContext(ctx, "data loaded", "path", st.SourcePath, "rows", t.NumRows(), "columns", t.NumColumns())
	st.Table = t
	return st, nil
}

// Inspect records whether the table has any null cell.
func (s *Set) Inspect(ctx context.Context, st domain.State) (domain.State, error) {
	if !st.Table.HasNulls() {
		fmt.Fprintln(s.console, "No missing values detected - skipping cleaning step")
		return st.WithMissing(false, 0), nil
	}
	count := st.Table.NullCount()
	fmt.Fprintf(s.console, "Found %d missing value(s) - routing to cleaning step\n", count)
	return st.WithMissing(true, count), nil
}

// Clean fills numeric nulls with the mean of their column.
func (s *Set) Clean(ctx context.Context, st domain.State) (domain.State, error) {
	fmt.Fprintln(s.console, "Cleaning data: filling missing numeric values with column means...")

	before := st.Table.NullCount()
	st.Table = st.Table.FillNumericMeans()

	s.logger.DebugContext(ctx, "missing values filled", "before", before, "after", st.Table.NullCount())
	fmt.Fprintln(s.console, "Data cleaning completed")
	return st, nil
}

// RemoveOutliers drops rows outside the IQR fences of any numeric column.
func (s *Set) RemoveOutliers(ctx context.Context, st domain.State) (domain.State, error) {
	before := st.Table.NumRows()
	st.Table = st.Table.RemoveOutliersIQR(s.iqrFactor)

	if removed := before - st.Table.NumRows(); removed > 0 {
		fmt.Fprintf(s.console, "Removed %d outlier row(s)\n", removed)
	}
	return st, nil
}

// Summarize computes the descriptive statistics of the numeric columns.
func (s *Set) Summarize(ctx context.Context, st domain.State) (domain.State, error) {
	summary := table.FormatStats(st.Table.Describe())
	if s.detailed {
		summary = "Data Info:\n" + st.Table.Info() +
			"\n\nMissing Values:\n" + st.Table.FormatNullCounts() +
			"\n\nSummary Statistics:\n" + summary
	}

	st.Summary = summary
	st.Summarized = true
	return st, nil
}

// Report prints the summary and, if a store is configured, persists the
// run's report. A store failure fails the step.
func (s *Set) Report(ctx context.Context, st domain.State) error {
	summary := st.Summary
	if s.render != nil {
		rendered, err := s.render(summary)
		if err != nil {
			s.logger.WarnContext(ctx, "summary rendering failed, printing plain text", "error", err)
		} else {
			summary = rendered
		}
	}

	fmt.Fprintln(s.report, "Data Summary:")
	fmt.Fprintln(s.report, summary)

	if s.store == nil {
		return nil
	}

	runID := domain.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	if err := s.store.Save(ctx, domain.NewReport(runID, st)); err != nil {
		return fmt.Errorf("failed to save report %s: %w", runID, err)
	}
	s.logger.InfoContext(ctx, "report saved", "run_id", runID)
	return nil
}

// RouteMissing sends tables with missing values to the cleaning step.
// Routing before inspection is a contract violation.
func RouteMissing(ctx context.Context, st domain.State) (domain.Label, error) {
	if st.HasMissing == nil {
		return "", domain.ErrMissingFlagUnset
	}
	if *st.HasMissing {
		return domain.LabelHandle, nil
	}
	return domain.LabelSkip, nil
}
