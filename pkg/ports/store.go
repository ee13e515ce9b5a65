package ports

import (
	"context"

	"github.com/aretw0/sieve/pkg/domain"
)

// ReportStore persists the reports of finished runs so they can be fetched
// again by run ID.
type ReportStore interface {
	// Save persists the report under its RunID.
	Save(ctx context.Context, report *domain.Report) error

	// Load retrieves the report for a given run ID.
	// Returns domain.ErrReportNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Report, error)

	// List returns the run IDs currently held by the store.
	List(ctx context.Context) ([]string, error)

	// Delete removes the report for a given run ID. Deleting an unknown run
	// is not an error.
	Delete(ctx context.Context, runID string) error
}
