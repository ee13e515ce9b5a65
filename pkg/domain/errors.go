package domain

import (
	"errors"
	"fmt"
)

// ErrGraphConfiguration is matched by every error raised while defining or
// compiling a graph.
var ErrGraphConfiguration = errors.New("graph configuration error")

// ErrMissingFlagUnset is returned when the missing-value router runs before
// inspection has set the flag.
var ErrMissingFlagUnset = errors.New("missing-value flag is not set")

// ErrReportNotFound is returned when a run ID cannot be found in a report store.
var ErrReportNotFound = errors.New("report not found")

// DuplicateNameError is returned when a step name is registered twice.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("step %q is already registered", e.Name)
}

// Is makes the error match ErrGraphConfiguration.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrGraphConfiguration
}

// MalformedGraphError reports a structural problem in a graph definition.
type MalformedGraphError struct {
	Step   string // Step where the problem was found, if any
	Reason string
}

func (e *MalformedGraphError) Error() string {
	if e.Step == "" {
		return "malformed graph: " + e.Reason
	}
	return fmt.Sprintf("malformed graph at step %q: %s", e.Step, e.Reason)
}

// Is makes the error match ErrGraphConfiguration.
func (e *MalformedGraphError) Is(target error) bool {
	return target == ErrGraphConfiguration
}

// UnknownLabelError is returned when a router yields a label that has no
// entry in the dispatch table.
type UnknownLabelError struct {
	Step  string
	Label Label
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("router after step %q returned unknown label %q", e.Step, e.Label)
}

// StepExecutionError wraps the failure of a single step.
type StepExecutionError struct {
	StepName string
	Cause    error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.StepName, e.Cause)
}

func (e *StepExecutionError) Unwrap() error {
	return e.Cause
}

// PreconditionError is returned when a step runs before the fields it reads
// have been populated.
type PreconditionError struct {
	Missing []Field
}

func (e *PreconditionError) Error() string {
	return "missing required fields: " + joinFields(e.Missing)
}

// DataLoadError is returned when the source cannot be read or parsed.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("cannot load %q: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}
