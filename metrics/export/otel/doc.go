// Package otel provides OpenTelemetry metric exporter bindings for goAuthFlow
// counters and histograms.
//
// [NewOTelExporter] registers Int64ObservableCounter instruments for each goAuthFlow
// metric and Int64ObservableGauge per histogram bucket. A single callback reads
// [goAuthFlow.Orchestrator.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate orchestrator state.
package otel
