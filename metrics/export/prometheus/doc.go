// Package prometheus provides a Prometheus text-format exporter for cineauth
// metrics.
//
// [NewPrometheusExporter] accepts a [cineauth.Engine] and exposes an
// [net/http.Handler] that renders all counters and histograms in Prometheus
// text exposition format. Counter names are prefixed cineauth_*_total; the
// single histogram is cineauth_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
