// Package httpserver serves the operational HTTP endpoints of a towerlink
// role:
//
//   - GET /metrics: Prometheus exposition
//   - GET /health: liveness
//   - GET /ready: readiness, as reported by the role
//   - GET /version: build information
//
// The server is optional and only started when metrics.addr is set. It
// carries no tower data.
package httpserver
