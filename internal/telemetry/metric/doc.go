// Package metric provides Prometheus metrics for tssd.
//
// Metrics include keygen outcomes and latency, reservation state changes,
// RPC request counts, and Go runtime and process collectors. They are
// exposed at /metrics in Prometheus text format.
package metric
