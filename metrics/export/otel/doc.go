// Package otel publishes goSession metrics through an OpenTelemetry Meter.
//
// Every counter becomes an Int64ObservableCounter and every latency bucket an
// Int64ObservableGauge. One callback reads [goSession.Engine.MetricsSnapshot]
// per collection. Callers own the MeterProvider.
package otel
