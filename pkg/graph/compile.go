package graph

import (
	"fmt"
	"slices"

	"github.com/aretw0/sieve/pkg/domain"
)

// Compile validates the definition and freezes it into an executable Graph.
//
// Restricted to the steps reachable from start, the graph must be a simple
// path with at most one conditional dispatch whose branches rejoin at a
// common step before End. Every label a router declares must be dispatched
// and every dispatched label must be declared.
func (d *Definition[S]) Compile() (*Graph[S], error) {
	if d.start == "" {
		return nil, &domain.MalformedGraphError{Reason: "no start step set"}
	}

	for _, name := range d.order {
		if err := d.checkRule(d.nodes[name]); err != nil {
			return nil, err
		}
	}

	reachable, err := d.walk()
	if err != nil {
		return nil, err
	}

	g := &Graph[S]{
		start: d.start,
		nodes: make(map[string]*Node[S], len(reachable)),
		order: reachable,
	}
	for _, name := range reachable {
		g.nodes[name] = &Node[S]{n: d.nodes[name].clone()}
	}

	return g, nil
}

func (d *Definition[S]) checkRule(n *node[S]) error {
	if n.next != "" && !d.isTarget(n.next) {
		return &domain.MalformedGraphError{Step: n.name, Reason: fmt.Sprintf("edge to unknown step %q", n.next)}
	}
	if n.sink != nil && n.next != "" && n.next != End {
		return &domain.MalformedGraphError{Step: n.name, Reason: "a terminal step must route to the end"}
	}
	if n.router == nil {
		return nil
	}

	declared := n.router.Labels()
	if len(declared) == 0 {
		return &domain.MalformedGraphError{Step: n.name, Reason: "router declares no labels"}
	}
	for _, label := range declared {
		if _, ok := n.dispatch[label]; !ok {
			return &domain.MalformedGraphError{Step: n.name, Reason: fmt.Sprintf("router label %q has no dispatch entry", label)}
		}
	}
	for _, label := range sortedLabels(n.dispatch) {
		if !slices.Contains(declared, label) {
			return &domain.MalformedGraphError{Step: n.name, Reason: fmt.Sprintf("dispatch label %q is never returned by the router", label)}
		}
		if target := n.dispatch[label]; !d.isTarget(target) {
			return &domain.MalformedGraphError{Step: n.name, Reason: fmt.Sprintf("label %q dispatches to unknown step %q", label, target)}
		}
	}
	return nil
}

func (d *Definition[S]) isTarget(name string) bool {
	if name == End {
		return true
	}
	_, ok := d.nodes[name]
	return ok
}

// successor follows the unconditional rule of a step.
func (d *Definition[S]) successor(n *node[S]) (string, error) {
	switch {
	case n.next != "":
		return n.next, nil
	case n.sink != nil:
		return End, nil
	default:
		return "", &domain.MalformedGraphError{Step: n.name, Reason: "step has no outgoing edge"}
	}
}

// walk crawls the graph from start and returns the reachable steps in
// execution order, with branch-only steps placed right after the branch point.
func (d *Definition[S]) walk() ([]string, error) {
	visited := make(map[string]bool)
	var order []string
	branched := false

	cur := d.start
	for cur != End {
		if visited[cur] {
			return nil, &domain.MalformedGraphError{Step: cur, Reason: "cycle detected"}
		}
		visited[cur] = true
		order = append(order, cur)

		n := d.nodes[cur]
		if n.router == nil {
			next, err := d.successor(n)
			if err != nil {
				return nil, err
			}
			cur = next
			continue
		}

		if branched {
			return nil, &domain.MalformedGraphError{Step: cur, Reason: "only one conditional dispatch is supported"}
		}
		branched = true

		join, branchSteps, err := d.rejoin(n, visited)
		if err != nil {
			return nil, err
		}
		for _, name := range branchSteps {
			visited[name] = true
			order = append(order, name)
		}
		cur = join
	}

	return order, nil
}

// rejoin follows every distinct dispatch target until the branches meet.
// It returns the join step and the steps that lie on exactly one branch.
func (d *Definition[S]) rejoin(branch *node[S], visited map[string]bool) (string, []string, error) {
	var chains [][]string
	seenTarget := make(map[string]bool)

	for _, label := range sortedLabels(branch.dispatch) {
		target := branch.dispatch[label]
		if seenTarget[target] {
			continue
		}
		seenTarget[target] = true

		chain, err := d.chain(target, visited)
		if err != nil {
			return "", nil, err
		}
		chains = append(chains, chain)
	}

	join := ""
	for _, candidate := range chains[0] {
		inAll := true
		for _, other := range chains[1:] {
			if !slices.Contains(other, candidate) {
				inAll = false
				break
			}
		}
		if inAll {
			join = candidate
			break
		}
	}
	if join == End {
		return "", nil, &domain.MalformedGraphError{Step: branch.name, Reason: "branches do not rejoin before the end"}
	}

	owner := make(map[string]bool)
	var branchSteps []string
	for _, chain := range chains {
		for _, name := range chain {
			if name == join {
				break
			}
			if owner[name] {
				return "", nil, &domain.MalformedGraphError{Step: name, Reason: "step is reachable by more than one path before the branches rejoin"}
			}
			owner[name] = true
			branchSteps = append(branchSteps, name)
		}
	}

	return join, branchSteps, nil
}

// chain lists the steps from start to End along unconditional rules.
func (d *Definition[S]) chain(start string, visited map[string]bool) ([]string, error) {
	var out []string
	seen := make(map[string]bool)

	cur := start
	for cur != End {
		if visited[cur] || seen[cur] {
			return nil, &domain.MalformedGraphError{Step: cur, Reason: "cycle detected"}
		}
		seen[cur] = true
		out = append(out, cur)

		n := d.nodes[cur]
		if n.router != nil {
			return nil, &domain.MalformedGraphError{Step: cur, Reason: "only one conditional dispatch is supported"}
		}
		next, err := d.successor(n)
		if err != nil {
			return nil, err
		}
		cur = next
	}

	return append(out, End), nil
}

func sortedLabels(dispatch map[domain.Label]string) []domain.Label {
	labels := make([]domain.Label, 0, len(dispatch))
	for label := range dispatch {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}
