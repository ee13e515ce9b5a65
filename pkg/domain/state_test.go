package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Has(t *testing.T) {
	s := domain.NewState("data.csv")

	assert.Equal(t, "data.csv", s.SourcePath)
	assert.False(t, s.Has(domain.FieldTable))
	assert.False(t, s.Has(domain.FieldMissingFlag))
	assert.False(t, s.Has(domain.FieldSummary))

	s.Table = table.MustNew(table.Numeric("a", table.N(1)))
	s = s.WithMissing(false, 0)
	s.Summarized = true

	assert.True(t, s.Has(domain.FieldTable))
	assert.True(t, s.Has(domain.FieldMissingFlag))
	assert.True(t, s.Has(domain.FieldSummary))
	assert.False(t, s.Has(domain.Field("bogus")))
}

func TestState_WithMissingDoesNotAlias(t *testing.T) {
	before := domain.NewState("x")
	after := before.WithMissing(true, 3)

	assert.Nil(t, before.HasMissing)
	require.NotNil(t, after.HasMissing)
	assert.True(t, *after.HasMissing)
	assert.Equal(t, 3, after.MissingCount)
}

func TestRequire(t *testing.T) {
	check := domain.Require(domain.FieldTable, domain.FieldMissingFlag)

	err := check(domain.NewState("x"))
	var pre *domain.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, []domain.Field{domain.FieldTable, domain.FieldMissingFlag}, pre.Missing)
	assert.Equal(t, "missing required fields: table, has_missing", err.Error())

	s := domain.NewState("x")
	s.Table = table.MustNew()
	s = s.WithMissing(false, 0)
	assert.NoError(t, check(s))
}

func TestErrors(t *testing.T) {
	dup := &domain.DuplicateNameError{Name: "load"}
	assert.ErrorIs(t, dup, domain.ErrGraphConfiguration)
	assert.Equal(t, `step "load" is already registered`, dup.Error())

	mal := &domain.MalformedGraphError{Step: "inspect", Reason: "no outgoing edge"}
	assert.ErrorIs(t, mal, domain.ErrGraphConfiguration)
	assert.Equal(t, `malformed graph at step "inspect": no outgoing edge`, mal.Error())

	cause := &domain.DataLoadError{Path: "x.csv", Err: errors.New("boom")}
	stepErr := &domain.StepExecutionError{StepName: "load", Cause: cause}
	assert.Equal(t, `step "load" failed: cannot load "x.csv": boom`, stepErr.Error())

	var loadErr *domain.DataLoadError
	assert.ErrorAs(t, stepErr, &loadErr)
	assert.NotErrorIs(t, stepErr, domain.ErrGraphConfiguration)

	unknown := &domain.UnknownLabelError{Step: "inspect", Label: "Maybe"}
	assert.Contains(t, unknown.Error(), `"Maybe"`)
}

func TestNewReport(t *testing.T) {
	s := domain.NewState("data.csv")
	s.Table = table.MustNew(table.Numeric("a", table.N(1), table.N(2)))
	s = s.WithMissing(true, 1)
	s.Summary = "stats"
	s.Summarized = true

	r := domain.NewReport("run-1", s)

	assert.Equal(t, "run-1", r.RunID)
	assert.True(t, r.HasMissing)
	assert.True(t, r.Cleaned)
	assert.Equal(t, 1, r.MissingCount)
	assert.Equal(t, 2, r.Rows)
	assert.Equal(t, []string{"a"}, r.Columns)
	assert.Equal(t, "stats", r.Summary)
	assert.False(t, r.CreatedAt.IsZero())
}
