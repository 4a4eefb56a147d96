// Package prometheus exposes goSession metrics as a prometheus.Collector.
//
// Counters are published as gosession_*_total and the authenticate latency
// as the gosession_authenticate_latency_seconds histogram. The collector only
// reads [goSession.Engine.MetricsSnapshot]; callers choose the registry.
package prometheus
