package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/sieve/internal/logging"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/graph"
)

// Engine executes a compiled graph from its start step to graph.End.
type Engine[S any] struct {
	graph  *graph.Graph[S]
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// WithLogger sets the structured logger used for per-step debug output.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(c *engineConfig) {
		c.hooks = hooks
	}
}

// NewEngine creates an engine bound to a compiled graph.
func NewEngine[S any](g *graph.Graph[S], opts ...EngineOption) *Engine[S] {
	cfg := &engineConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}

	return &Engine[S]{
		graph:  g,
		hooks:  cfg.hooks,
		logger: cfg.logger,
	}
}

// Run drives the state through the graph. Steps run one at a time, in
// order, and each step's returned state becomes the input of the next.
//
// A failing step or router aborts the run with *domain.StepExecutionError
// and the zero state. A router label missing from the dispatch table is
// returned as *domain.UnknownLabelError. OnRunFinish fires exactly once
// either way.
func (e *Engine[S]) Run(ctx context.Context, initial S) (S, error) {
	runID := domain.RunIDFromContext(ctx)
	started := time.Now()

	var visited []string
	final, failed, err := e.run(ctx, runID, initial, &visited)

	e.emitRunFinish(ctx, runID, visited, failed, time.Since(started), err)
	return final, err
}

// run returns the name of the failing step alongside the error.
func (e *Engine[S]) run(ctx context.Context, runID string, initial S, visited *[]string) (S, string, error) {
	var zero S
	state := initial

	name := e.graph.Start()
	for name != graph.End {
		node, ok := e.graph.Lookup(name)
		if !ok {
			// Compile guarantees every target exists.
			return zero, name, &domain.MalformedGraphError{Step: name, Reason: "step vanished from compiled graph"}
		}

		if err := node.Check(state); err != nil {
			e.emitStepError(ctx, runID, node, 0, err)
			return zero, name, &domain.StepExecutionError{StepName: name, Cause: err}
		}

		*visited = append(*visited, name)
		e.emitStepEnter(ctx, runID, node)
		started := time.Now()

		next, err := node.Invoke(ctx, state)
		elapsed := time.Since(started)
		if err != nil {
			e.emitStepError(ctx, runID, node, elapsed, err)
			e.logger.DebugContext(ctx, "step failed", "step", name, "duration", elapsed, "error", err)
			return zero, name, &domain.StepExecutionError{StepName: name, Cause: err}
		}
		state = next
		e.emitStepLeave(ctx, runID, node, elapsed)

		target, label, err := node.Next(ctx, state)
		if err != nil {
			e.emitStepError(ctx, runID, node, elapsed, err)
			var unknown *domain.UnknownLabelError
			if errors.As(err, &unknown) {
				return zero, name, err
			}
			return zero, name, &domain.StepExecutionError{StepName: name, Cause: err}
		}

		e.emitRoute(ctx, runID, name, label, target)
		e.logger.DebugContext(ctx, "step completed", "step", name, "next", target, "duration", elapsed)
		name = target
	}

	return state, "", nil
}

func (e *Engine[S]) emitRunFinish(ctx context.Context, runID string, visited []string, failed string, d time.Duration, err error) {
	if e.hooks.OnRunFinish == nil {
		return
	}
	e.hooks.OnRunFinish(ctx, &domain.RunEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventRunFinish, RunID: runID},
		Visited:    visited,
		FailedStep: failed,
		Duration:   d,
		Err:        err,
	})
}

func (e *Engine[S]) emitStepEnter(ctx context.Context, runID string, node *graph.Node[S]) {
	if e.hooks.OnStepEnter == nil {
		return
	}
	e.hooks.OnStepEnter(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepEnter, RunID: runID},
		Step:      node.Name(),
		Terminal:  node.Terminal(),
	})
}

func (e *Engine[S]) emitStepLeave(ctx context.Context, runID string, node *graph.Node[S], d time.Duration) {
	if e.hooks.OnStepLeave == nil {
		return
	}
	e.hooks.OnStepLeave(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepLeave, RunID: runID},
		Step:      node.Name(),
		Terminal:  node.Terminal(),
		Duration:  d,
	})
}

func (e *Engine[S]) emitStepError(ctx context.Context, runID string, node *graph.Node[S], d time.Duration, err error) {
	if e.hooks.OnStepError == nil {
		return
	}
	e.hooks.OnStepError(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepError, RunID: runID},
		Step:      node.Name(),
		Terminal:  node.Terminal(),
		Duration:  d,
		Err:       err,
	})
}

func (e *Engine[S]) emitRoute(ctx context.Context, runID, from string, label domain.Label, target string) {
	if e.hooks.OnRoute == nil {
		return
	}
	e.hooks.OnRoute(ctx, &domain.RouteEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRoute, RunID: runID},
		From:      from,
		Label:     label,
		Target:    target,
	})
}
