// Package prometheus provides Prometheus collectors for goAuthFlow metrics.
//
// [NewPrometheusExporter] accepts an [goAuthFlow.Orchestrator] and exposes an
// [http.Handler] that renders all goAuthFlow counters and histograms in Prometheus
// text exposition format. Counter names are prefixed goauthflow_*_total; the single
// histogram is goauthflow_submit_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate orchestrator state.
package prometheus
