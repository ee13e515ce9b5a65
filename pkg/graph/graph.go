package graph

import (
	"context"
	"maps"

	"github.com/aretw0/sieve/pkg/domain"
)

// Graph is a compiled, read-only graph. It only contains steps reachable
// from the start step.
type Graph[S any] struct {
	start string
	nodes map[string]*Node[S]
	order []string
}

// Start returns the name of the first step.
func (g *Graph[S]) Start() string { return g.start }

// Lookup returns the named step.
func (g *Graph[S]) Lookup(name string) (*Node[S], bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Len returns the number of reachable steps.
func (g *Graph[S]) Len() int { return len(g.order) }

// Node is a compiled step together with its outgoing rule.
type Node[S any] struct {
	n *node[S]
}

// Name returns the step name.
func (n *Node[S]) Name() string { return n.n.name }

// Terminal reports whether the step is a sink.
func (n *Node[S]) Terminal() bool { return n.n.sink != nil }

// Conditional reports whether the step is followed by a router.
func (n *Node[S]) Conditional() bool { return n.n.router != nil }

// Check runs the step's preconditions against the state.
func (n *Node[S]) Check(state S) error {
	for _, check := range n.n.requires {
		if err := check(state); err != nil {
			return err
		}
	}
	return nil
}

// Invoke runs the step. A sink leaves the state unchanged.
func (n *Node[S]) Invoke(ctx context.Context, state S) (S, error) {
	if n.n.sink != nil {
		return state, n.n.sink(ctx, state)
	}
	return n.n.step(ctx, state)
}

// Next resolves the step that follows this one. For a conditional step it
// calls the router and returns the chosen label; a label with no dispatch
// entry yields *domain.UnknownLabelError.
func (n *Node[S]) Next(ctx context.Context, state S) (string, domain.Label, error) {
	if n.n.router == nil {
		if n.n.next == "" {
			return End, "", nil
		}
		return n.n.next, "", nil
	}

	label, err := n.n.router.Route(ctx, state)
	if err != nil {
		return "", label, err
	}
	target, ok := n.n.dispatch[label]
	if !ok {
		return "", label, &domain.UnknownLabelError{Step: n.n.name, Label: label}
	}
	return target, label, nil
}

// NodeInfo describes a step for introspection and diagrams.
type NodeInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Terminal    bool       `json:"terminal,omitempty"`
	Start       bool       `json:"start,omitempty"`
	Edges       []EdgeInfo `json:"edges"`
}

// EdgeInfo describes one outgoing edge. Label is empty for unconditional edges.
type EdgeInfo struct {
	To    string       `json:"to"`
	Label domain.Label `json:"label,omitempty"`
}

// Nodes returns the reachable steps in execution order.
func (g *Graph[S]) Nodes() []NodeInfo {
	out := make([]NodeInfo, 0, g.Len())
	for _, name := range g.order {
		step := g.nodes[name]
		n := step.n
		info := NodeInfo{
			Name:        n.name,
			Description: n.description,
			Terminal:    step.Terminal(),
			Start:       n.name == g.start,
		}

		switch {
		case step.Conditional():
			for _, label := range sortedLabels(n.dispatch) {
				info.Edges = append(info.Edges, EdgeInfo{To: n.dispatch[label], Label: label})
			}
		case n.next != "":
			info.Edges = append(info.Edges, EdgeInfo{To: n.next})
		default:
			info.Edges = append(info.Edges, EdgeInfo{To: End})
		}

		out = append(out, info)
	}
	return out
}

func (n *node[S]) clone() *node[S] {
	c := *n
	c.requires = append([]func(S) error(nil), n.requires...)
	c.dispatch = maps.Clone(n.dispatch)
	return &c
}
