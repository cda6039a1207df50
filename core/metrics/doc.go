// Package metrics defines the sinks recording sleep cycle metrics. Sinks such
// as PromSink and InfluxSink live in infra/metrics and register themselves by
// name; NewMetricsSink returns a MultiSink when several are configured.
package metrics
