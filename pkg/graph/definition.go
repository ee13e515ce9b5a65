package graph

import (
	"context"
	"fmt"

	"github.com/aretw0/sieve/pkg/domain"
)

// End is the terminal sentinel. An edge to End finishes the run.
const End = "__end__"

// StepFunc transforms the state and returns the updated value.
type StepFunc[S any] func(ctx context.Context, state S) (S, error)

// SinkFunc is a terminal step: it consumes the state for its side effects
// and produces no new state.
type SinkFunc[S any] func(ctx context.Context, state S) error

// Definition collects steps and routing rules before compilation.
// It is not safe for concurrent use.
type Definition[S any] struct {
	nodes map[string]*node[S]
	order []string
	start string
}

type node[S any] struct {
	name        string
	step        StepFunc[S]
	sink        SinkFunc[S]
	requires    []func(S) error
	description string

	next     string
	router   Router[S]
	dispatch map[domain.Label]string
}

func (n *node[S]) hasRule() bool {
	return n.next != "" || n.router != nil
}

// StepOption configures a registered step.
type StepOption[S any] func(*node[S])

// Requires adds a precondition checked by the executor before the step runs.
func Requires[S any](check func(S) error) StepOption[S] {
	return func(n *node[S]) {
		n.requires = append(n.requires, check)
	}
}

// Describe sets a short human-readable description used in diagrams.
func Describe[S any](text string) StepOption[S] {
	return func(n *node[S]) {
		n.description = text
	}
}

// NewDefinition creates an empty graph definition.
func NewDefinition[S any]() *Definition[S] {
	return &Definition[S]{
		nodes: make(map[string]*node[S]),
	}
}

// RegisterStep associates a unique name with a step function.
func (d *Definition[S]) RegisterStep(name string, fn StepFunc[S], opts ...StepOption[S]) error {
	if fn == nil {
		return &domain.MalformedGraphError{Step: name, Reason: "step function is nil"}
	}
	return d.register(&node[S]{name: name, step: fn}, opts)
}

// RegisterSink associates a unique name with a terminal step function.
// A sink routes to End unless an explicit edge says otherwise.
func (d *Definition[S]) RegisterSink(name string, fn SinkFunc[S], opts ...StepOption[S]) error {
	if fn == nil {
		return &domain.MalformedGraphError{Step: name, Reason: "sink function is nil"}
	}
	return d.register(&node[S]{name: name, sink: fn}, opts)
}

func (d *Definition[S]) register(n *node[S], opts []StepOption[S]) error {
	if n.name == "" {
		return &domain.MalformedGraphError{Reason: "step name must not be empty"}
	}
	if n.name == End {
		return &domain.MalformedGraphError{Step: n.name, Reason: "name is reserved for the end sentinel"}
	}
	if _, exists := d.nodes[n.name]; exists {
		return &domain.DuplicateNameError{Name: n.name}
	}

	for _, opt := range opts {
		opt(n)
	}

	d.nodes[n.name] = n
	d.order = append(d.order, n.name)
	return nil
}

// AddEdge declares that control passes unconditionally from one step to
// another (or to End). Each step owns exactly one routing rule.
func (d *Definition[S]) AddEdge(from, to string) error {
	n, err := d.ruleOwner(from)
	if err != nil {
		return err
	}
	if to == "" {
		return &domain.MalformedGraphError{Step: from, Reason: "edge target must not be empty"}
	}
	if to == from {
		return &domain.MalformedGraphError{Step: from, Reason: "self-loop"}
	}

	n.next = to
	return nil
}

// AddConditionalEdge declares that after the step, the router picks a label
// and the dispatch table maps that label to the next step.
func (d *Definition[S]) AddConditionalEdge(from string, router Router[S], dispatch map[domain.Label]string) error {
	n, err := d.ruleOwner(from)
	if err != nil {
		return err
	}
	if router == nil {
		return &domain.MalformedGraphError{Step: from, Reason: "router is nil"}
	}
	if len(dispatch) == 0 {
		return &domain.MalformedGraphError{Step: from, Reason: "dispatch table is empty"}
	}
	if n.sink != nil {
		return &domain.MalformedGraphError{Step: from, Reason: "a terminal step cannot branch"}
	}

	table := make(map[domain.Label]string, len(dispatch))
	for label, target := range dispatch {
		if target == "" {
			return &domain.MalformedGraphError{Step: from, Reason: fmt.Sprintf("label %q has an empty target", label)}
		}
		table[label] = target
	}

	n.router = router
	n.dispatch = table
	return nil
}

// SetStart designates the first step of the run.
func (d *Definition[S]) SetStart(name string) error {
	if _, ok := d.nodes[name]; !ok {
		return &domain.MalformedGraphError{Step: name, Reason: "start step is not registered"}
	}
	d.start = name
	return nil
}

func (d *Definition[S]) ruleOwner(from string) (*node[S], error) {
	n, ok := d.nodes[from]
	if !ok {
		return nil, &domain.MalformedGraphError{Step: from, Reason: "edge source is not registered"}
	}
	if n.hasRule() {
		return nil, &domain.MalformedGraphError{Step: from, Reason: "step already has an outgoing routing rule"}
	}
	return n, nil
}
