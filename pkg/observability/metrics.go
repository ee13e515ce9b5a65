package observability

import (
	"context"

	"github.com/aretw0/sieve/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes recorded by RecordRun.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the Prometheus collectors for pipeline execution.
type Metrics struct {
	StepRuns       *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec
	RouteDecisions *prometheus.CounterVec
	PipelineRuns   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sieve_step_runs_total",
				Help: "Total number of step executions by outcome",
			},
			[]string{"step", "status"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sieve_step_duration_seconds",
				Help:    "Duration of step executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		RouteDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sieve_route_decisions_total",
				Help: "Total number of conditional routing decisions by label",
			},
			[]string{"step", "label"},
		),
		PipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sieve_pipeline_runs_total",
				Help: "Total number of pipeline runs by outcome",
			},
			[]string{"status"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.StepRuns, m.StepDuration, m.RouteDecisions, m.PipelineRuns)
	}
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			m.StepRuns.WithLabelValues(e.Step, StatusSuccess).Inc()
			m.StepDuration.WithLabelValues(e.Step).Observe(e.Duration.Seconds())
		},
		OnStepError: func(_ context.Context, e *domain.StepEvent) {
			m.StepRuns.WithLabelValues(e.Step, StatusError).Inc()
			if e.Duration > 0 {
				m.StepDuration.WithLabelValues(e.Step).Observe(e.Duration.Seconds())
			}
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			// Unconditional edges carry no label.
			if e.Label == "" {
				return
			}
			m.RouteDecisions.WithLabelValues(e.From, string(e.Label)).Inc()
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.RecordRun(e.Err)
		},
	}
}

// RecordRun counts a finished pipeline run.
func (m *Metrics) RecordRun(err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.PipelineRuns.WithLabelValues(status).Inc()
}
