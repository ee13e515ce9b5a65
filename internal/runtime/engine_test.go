package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/sieve/internal/runtime"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trail records the steps that touched it.
type trail struct {
	branch  bool
	visited []string
}

func visit(name string) graph.StepFunc[trail] {
	return func(_ context.Context, s trail) (trail, error) {
		s.visited = append(append([]string(nil), s.visited...), name)
		return s, nil
	}
}

type fixture struct {
	def       *graph.Definition[trail]
	override  map[string]graph.StepFunc[trail]
	routeErr  error
	routeWith domain.Label
}

// newFixture builds a -> b -> {Handle: c, Skip: d} -> d -> e(sink) and
// returns the graph along with the trail the sink saw.
func newFixture(t *testing.T, mutate func(f *fixture)) (*graph.Graph[trail], *[]string) {
	t.Helper()
	f := &fixture{def: graph.NewDefinition[trail](), override: map[string]graph.StepFunc[trail]{}}
	if mutate != nil {
		mutate(f)
	}

	router := graph.NewRouter(func(_ context.Context, s trail) (domain.Label, error) {
		if f.routeErr != nil {
			return "", f.routeErr
		}
		if f.routeWith != "" {
			return f.routeWith, nil
		}
		if s.branch {
			return domain.LabelHandle, nil
		}
		return domain.LabelSkip, nil
	}, domain.LabelHandle, domain.LabelSkip)

	for _, name := range []string{"a", "b", "c", "d"} {
		fn, ok := f.override[name]
		if !ok {
			fn = visit(name)
		}
		require.NoError(t, f.def.RegisterStep(name, fn))
	}

	seen := []string{}
	require.NoError(t, f.def.RegisterSink("e", func(_ context.Context, s trail) error {
		seen = append(append([]string(nil), s.visited...), "e")
		return nil
	}))
	require.NoError(t, f.def.AddEdge("a", "b"))
	require.NoError(t, f.def.AddConditionalEdge("b", router, map[domain.Label]string{
		domain.LabelHandle: "c",
		domain.LabelSkip:   "d",
	}))
	require.NoError(t, f.def.AddEdge("c", "d"))
	require.NoError(t, f.def.AddEdge("d", "e"))
	require.NoError(t, f.def.SetStart("a"))

	g, err := f.def.Compile()
	require.NoError(t, err)
	return g, &seen
}

func TestEngine_VisitOrder(t *testing.T) {
	tests := []struct {
		name   string
		branch bool
		want   []string
	}{
		{name: "handle branch", branch: true, want: []string{"a", "b", "c", "d", "e"}},
		{name: "skip branch", branch: false, want: []string{"a", "b", "d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, sinkSeen := newFixture(t, nil)
			engine := runtime.NewEngine(g)

			final, err := engine.Run(context.Background(), trail{branch: tt.branch})
			require.NoError(t, err)
			assert.Equal(t, tt.want[:len(tt.want)-1], final.visited)
			assert.Equal(t, tt.want, *sinkSeen)
		})
	}
}

func TestEngine_StepFailureAbortsRun(t *testing.T) {
	boom := errors.New("boom")
	g, sinkSeen := newFixture(t, func(f *fixture) {
		f.override["c"] = func(context.Context, trail) (trail, error) {
			return trail{visited: []string{"partial"}}, boom
		}
	})

	final, err := runtime.NewEngine(g).Run(context.Background(), trail{branch: true})

	var stepErr *domain.StepExecutionError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "c", stepErr.StepName)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, `step "c" failed: boom`, err.Error())
	assert.Empty(t, final.visited, "no partial state is returned")
	assert.Empty(t, *sinkSeen, "later steps never run")
}

func TestEngine_RouterFailureIsAttributedToRoutingStep(t *testing.T) {
	g, _ := newFixture(t, func(f *fixture) { f.routeErr = domain.ErrMissingFlagUnset })

	_, err := runtime.NewEngine(g).Run(context.Background(), trail{})

	var stepErr *domain.StepExecutionError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "b", stepErr.StepName)
	assert.ErrorIs(t, err, domain.ErrMissingFlagUnset)
}

func TestEngine_UnknownLabel(t *testing.T) {
	g, _ := newFixture(t, func(f *fixture) { f.routeWith = "Maybe" })

	var failed []*domain.StepEvent
	hooks := domain.LifecycleHooks{
		OnStepError: func(_ context.Context, e *domain.StepEvent) { failed = append(failed, e) },
	}
	_, err := runtime.NewEngine(g, runtime.WithLifecycleHooks(hooks)).Run(context.Background(), trail{})

	var unknown *domain.UnknownLabelError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "b", unknown.Step)
	var stepErr *domain.StepExecutionError
	assert.False(t, errors.As(err, &stepErr), "unknown labels are not wrapped")

	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].Step)
	assert.ErrorAs(t, failed[0].Err, &unknown)
}

func TestEngine_PreconditionFailure(t *testing.T) {
	errNotReady := errors.New("not ready")
	def := graph.NewDefinition[trail]()
	require.NoError(t, def.RegisterStep("first", visit("first")))
	require.NoError(t, def.RegisterSink("second", func(context.Context, trail) error {
		t.Fatal("sink must not run when its precondition fails")
		return nil
	}, graph.Requires(func(s trail) error {
		if !s.branch {
			return errNotReady
		}
		return nil
	})))
	require.NoError(t, def.AddEdge("first", "second"))
	require.NoError(t, def.SetStart("first"))
	g, err := def.Compile()
	require.NoError(t, err)

	_, err = runtime.NewEngine(g).Run(context.Background(), trail{})

	var stepErr *domain.StepExecutionError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "second", stepErr.StepName)
	assert.ErrorIs(t, err, errNotReady)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	g, _ := newFixture(t, nil)

	var (
		entered []string
		left    []string
		routes  []domain.RouteEvent
		runIDs  = map[string]bool{}
	)
	hooks := domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			entered = append(entered, e.Step)
			runIDs[e.RunID] = true
		},
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			left = append(left, e.Step)
			assert.Equal(t, domain.EventStepLeave, e.Type)
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			routes = append(routes, *e)
		},
		OnStepError: func(_ context.Context, e *domain.StepEvent) {
			t.Errorf("unexpected step error at %s: %v", e.Step, e.Err)
		},
	}

	ctx := domain.ContextWithRunID(context.Background(), "run-1")
	_, err := runtime.NewEngine(g, runtime.WithLifecycleHooks(hooks)).Run(ctx, trail{branch: false})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "d", "e"}, entered)
	assert.Equal(t, entered, left)
	assert.Equal(t, map[string]bool{"run-1": true}, runIDs)

	require.Len(t, routes, 4)
	assert.Equal(t, "b", routes[1].From)
	assert.Equal(t, domain.LabelSkip, routes[1].Label)
	assert.Equal(t, "d", routes[1].Target)
	assert.Equal(t, graph.End, routes[3].Target)
}

func TestEngine_StepErrorHook(t *testing.T) {
	boom := errors.New("boom")
	g, _ := newFixture(t, func(f *fixture) {
		f.override["a"] = func(context.Context, trail) (trail, error) {
			return trail{}, boom
		}
	})

	var failed []*domain.StepEvent
	hooks := domain.LifecycleHooks{
		OnStepError: func(_ context.Context, e *domain.StepEvent) { failed = append(failed, e) },
	}

	_, err := runtime.NewEngine(g, runtime.WithLifecycleHooks(hooks)).Run(context.Background(), trail{})
	require.Error(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "a", failed[0].Step)
	assert.ErrorIs(t, failed[0].Err, boom)
}

func TestEngine_RunFinishHook(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(f *fixture)
		branch      bool
		wantVisited []string
		wantFailed  string
		wantErr     bool
	}{
		{
			name:        "success",
			branch:      true,
			wantVisited: []string{"a", "b", "c", "d", "e"},
		},
		{
			name: "step failure",
			mutate: func(f *fixture) {
				f.override["c"] = func(context.Context, trail) (trail, error) { return trail{}, errors.New("boom") }
			},
			branch:      true,
			wantVisited: []string{"a", "b", "c"},
			wantFailed:  "c",
			wantErr:     true,
		},
		{
			name:        "unknown label",
			mutate:      func(f *fixture) { f.routeWith = "Maybe" },
			wantVisited: []string{"a", "b"},
			wantFailed:  "b",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newFixture(t, tt.mutate)

			var events []*domain.RunEvent
			hooks := domain.LifecycleHooks{
				OnRunFinish: func(_ context.Context, e *domain.RunEvent) { events = append(events, e) },
			}
			ctx := domain.ContextWithRunID(context.Background(), "run-7")
			_, err := runtime.NewEngine(g, runtime.WithLifecycleHooks(hooks)).Run(ctx, trail{branch: tt.branch})

			require.Len(t, events, 1)
			ev := events[0]
			assert.Equal(t, domain.EventRunFinish, ev.Type)
			assert.Equal(t, "run-7", ev.RunID)
			assert.Equal(t, tt.wantVisited, ev.Visited)
			assert.Equal(t, tt.wantFailed, ev.FailedStep)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, err, ev.Err)
				assert.False(t, ev.Succeeded())
			} else {
				require.NoError(t, err)
				assert.True(t, ev.Succeeded())
			}
		})
	}
}
