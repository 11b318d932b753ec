// Package prometheus renders hrclient metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] wraps an [hrclient.Client] and exposes an
// [http.Handler]. Counter names are hrclient_*_total; the latency histograms
// are hrclient_request_latency_seconds and hrclient_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate client state.
package prometheus
