package domain

import (
	"strings"

	"github.com/aretw0/sieve/pkg/table"
)

// Field names a State field that steps may require.
type Field string

const (
	FieldTable       Field = "table"
	FieldMissingFlag Field = "has_missing"
	FieldSummary     Field = "summary"
)

// State is the record threaded through every step of a single run.
// It is passed and returned by value; the Table it points to is never
// modified in place, so earlier copies of a State stay valid.
type State struct {
	// SourcePath identifies the input data. Set once by NewState.
	SourcePath string

	// Table is nil until the load step runs.
	Table *table.Table

	// HasMissing is nil until the inspect step runs.
	HasMissing *bool

	// MissingCount is the number of null cells seen by inspect.
	MissingCount int

	// Summary is the textual description produced by summarize.
	Summary string

	// Summarized is true once summarize has run.
	Summarized bool
}

// NewState creates the initial state of a run.
func NewState(sourcePath string) State {
	return State{SourcePath: sourcePath}
}

// Has reports whether a field has been populated.
func (s State) Has(f Field) bool {
	switch f {
	case FieldTable:
		return s.Table != nil
	case FieldMissingFlag:
		return s.HasMissing != nil
	case FieldSummary:
		return s.Summarized
	default:
		return false
	}
}

// Missing returns the fields from the list that are not populated yet.
func (s State) Missing(fields ...Field) []Field {
	var out []Field
	for _, f := range fields {
		if !s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Require builds a precondition check for the given fields.
func Require(fields ...Field) func(State) error {
	return func(s State) error {
		if missing := s.Missing(fields...); len(missing) > 0 {
			return &PreconditionError{Missing: missing}
		}
		return nil
	}
}

// WithMissing returns a copy of the state with the missing-value flag set.
func (s State) WithMissing(has bool, count int) State {
	s.HasMissing = &has
	s.MissingCount = count
	return s
}

func joinFields(fields []Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
