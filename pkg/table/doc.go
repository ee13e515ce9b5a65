// Package table is the in-memory tabular model used by the pipeline: named
// columns of nullable numeric or text cells, CSV ingestion, copy-on-write
// cleaning transforms, and descriptive statistics.
package table
