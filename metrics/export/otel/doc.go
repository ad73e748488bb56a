// Package otel registers hrdesk client counters as OpenTelemetry observable
// instruments.
//
// One callback reads the client snapshot per collection cycle. Histogram
// buckets are exported as cumulative gauges named with an _le_ suffix.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate client state.
package otel
