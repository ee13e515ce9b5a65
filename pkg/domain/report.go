package domain

import (
	"context"
	"time"
)

// Report is the persisted outcome of a finished run.
type Report struct {
	RunID        string    `json:"run_id"`
	SourcePath   string    `json:"source_path"`
	HasMissing   bool      `json:"has_missing"`
	MissingCount int       `json:"missing_count"`
	Cleaned      bool      `json:"cleaned"`
	Rows         int       `json:"rows"`
	Columns      []string  `json:"columns"`
	Summary      string    `json:"summary"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewReport captures the reportable fields of a summarized state.
func NewReport(runID string, s State) *Report {
	r := &Report{
		RunID:        runID,
		SourcePath:   s.SourcePath,
		MissingCount: s.MissingCount,
		Summary:      s.Summary,
		CreatedAt:    time.Now().UTC(),
	}
	if s.HasMissing != nil {
		r.HasMissing = *s.HasMissing
		r.Cleaned = *s.HasMissing
	}
	if s.Table != nil {
		r.Rows = s.Table.NumRows()
		r.Columns = s.Table.ColumnNames()
	}
	return r
}

type runIDKey struct{}

// ContextWithRunID attaches a run ID to the context.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run ID attached to the context, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
