// Package otel exposes passport engine metrics as OpenTelemetry observable instruments.
//
// [New] creates one Int64ObservableCounter per engine counter and one gauge per latency
// bucket, then reads Engine.MetricsSnapshot from a single callback on every collection.
// Callers own the MeterProvider.
package otel
