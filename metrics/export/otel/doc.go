// Package otel publishes tokengate engine metrics as OpenTelemetry instruments.
//
// [NewExporter] registers one Int64ObservableCounter per engine operation (issue,
// register, login, verify, authorize) split by an outcome attribute. The verify counter
// uses a "result" attribute holding "ok" or the verification failure kind. Latency is a
// gauge of cumulative bucket counts keyed by "le". A single callback reads
// Engine.MetricsSnapshot on each collection cycle; with engine metrics disabled only the
// audit drop counter is reported.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
