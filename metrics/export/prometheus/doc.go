// Package prometheus exposes tokengate engine metrics through prometheus/client_golang.
//
// [Collector] implements prometheus.Collector and turns each scrape into const metrics
// built from Engine.MetricsSnapshot. Counter names are tokengate_*_total; the single
// histogram is tokengate_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers register the Collector or mount
//     Handler.
//   - Mutate engine state.
package prometheus
