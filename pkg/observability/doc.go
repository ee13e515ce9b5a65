/*
Package observability turns the executor's lifecycle hooks into Prometheus
metrics and structured log lines.

Metrics.Hooks and LoggingHooks both return domain.LifecycleHooks; Combine
fans one event out to several hook sets.
*/
package observability
