// Package metric provides Prometheus metrics for towerlink.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: registry of replication metrics and the HTTP handler
//   - collector.go: file age collector for the tower file
//
// Metrics include:
//
//   - Push transfer outcomes per role
//   - Replication cycle outcomes and store latency
//   - Fallback and arbitration outcomes
//
// Metrics are exposed at /metrics in Prometheus format when an address
// is configured.
package metric
