// Package pipeline wires the missing-value steps into a compiled graph.
package pipeline

import (
	"github.com/aretw0/sieve/internal/steps"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/graph"
)

// Option configures the pipeline topology.
type Option func(*config)

type config struct {
	outliers bool
}

// WithOutlierRemoval inserts the remove_outliers step after the branches rejoin.
func WithOutlierRemoval(enabled bool) Option {
	return func(c *config) { c.outliers = enabled }
}

var desc = graph.Describe[domain.State]

// Build registers the steps of set and compiles the graph:
//
//	load -> inspect -> {Handle: clean, Skip: summarize}
//	clean -> [remove_outliers ->] summarize -> report
func Build(set *steps.Set, opts ...Option) (*graph.Graph[domain.State], error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	def := graph.NewDefinition[domain.State]()
	needTable := graph.Requires(domain.Require(domain.FieldTable))

	if err := def.RegisterStep(steps.Load, set.Load, desc("Load Data")); err != nil {
		return nil, err
	}
	if err := def.RegisterStep(steps.Inspect, set.Inspect, desc("Inspect Missing Values"), needTable); err != nil {
		return nil, err
	}
	if err := def.RegisterStep(steps.Clean, set.Clean, desc("Fill Numeric Means"),
		graph.Requires(domain.Require(domain.FieldTable, domain.FieldMissingFlag))); err != nil {
		return nil, err
	}
	if err := def.RegisterStep(steps.Summarize, set.Summarize, desc("Describe Data"), needTable); err != nil {
		return nil, err
	}
	if err := def.RegisterSink(steps.Report, set.Report, desc("Report Summary"),
		graph.Requires(domain.Require(domain.FieldSummary))); err != nil {
		return nil, err
	}

	// afterClean is where both branches meet.
	afterClean := steps.Summarize
	if cfg.outliers {
		if err := def.RegisterStep(steps.RemoveOutliers, set.RemoveOutliers, desc("Remove Outliers (IQR)"), needTable); err != nil {
			return nil, err
		}
		if err := def.AddEdge(steps.RemoveOutliers, steps.Summarize); err != nil {
			return nil, err
		}
		afterClean = steps.RemoveOutliers
	}

	router := graph.NewRouter(steps.RouteMissing, domain.LabelHandle, domain.LabelSkip)

	if err := def.AddEdge(steps.Load, steps.Inspect); err != nil {
		return nil, err
	}
	if err := def.AddConditionalEdge(steps.Inspect, router, map[domain.Label]string{
		domain.LabelHandle: steps.Clean,
		domain.LabelSkip:   afterClean,
	}); err != nil {
		return nil, err
	}
	if err := def.AddEdge(steps.Clean, afterClean); err != nil {
		return nil, err
	}
	if err := def.AddEdge(steps.Summarize, steps.Report); err != nil {
		return nil, err
	}
	if err := def.SetStart(steps.Load); err != nil {
		return nil, err
	}

	return def.Compile()
}
