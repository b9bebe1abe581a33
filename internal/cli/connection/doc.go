// Package connection talks to the operational HTTP endpoints a running
// towerlink process exposes on metrics.addr.
package connection
