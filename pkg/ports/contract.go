package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/sieve/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunReportStoreContract runs a suite of tests to verify that a ReportStore
// implementation adheres to the interface contract.
func RunReportStoreContract(t *testing.T, store ReportStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	newReport := func(id string) *domain.Report {
		return &domain.Report{
			RunID:        id,
			SourcePath:   "data/example.csv",
			HasMissing:   true,
			MissingCount: 2,
			Cleaned:      true,
			Rows:         3,
			Columns:      []string{"a", "b"},
			Summary:      "count  3.000000",
			CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		report := newReport(runID)

		err := store.Save(ctx, report)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, report.SourcePath, loaded.SourcePath)
		assert.Equal(t, report.MissingCount, loaded.MissingCount)
		assert.Equal(t, report.Columns, loaded.Columns)
		assert.Equal(t, report.Summary, loaded.Summary)
		assert.True(t, report.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newReport(runID)))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		loaded.Summary = "tampered"
		loaded.Columns[0] = "tampered"

		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, "count  3.000000", again.Summary)
		assert.Equal(t, "a", again.Columns[0])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrReportNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newReport(runID)))

		err := store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrReportNotFound, "Load after Delete should return ErrReportNotFound")

		assert.NoError(t, store.Delete(ctx, runID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		require.NoError(t, store.Save(ctx, newReport(id1)))
		require.NoError(t, store.Save(ctx, newReport(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
