// Package metric provides Prometheus metrics for towerlink.
package metric

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "towerlink"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Push path
	PushTransfers *prometheus.CounterVec // labels: role, outcome
	PushBytes     *prometheus.CounterVec // labels: role

	// Replication scheduler
	ReplicationCycles      *prometheus.CounterVec // labels: outcome
	ReplicationLastSuccess prometheus.Gauge

	// Durable store
	StoreLatency *prometheus.HistogramVec // labels: op, result

	// Receiver
	FallbackOutcomes *prometheus.CounterVec // labels: outcome
	ArbitrationWins  *prometheus.CounterVec // labels: path
}

// NewRegistry creates a registry with every towerlink metric registered,
// plus the Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		PushTransfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "transfers_total",
			Help:      "Push protocol transfers by role and outcome",
		}, []string{"role", "outcome"}),
		PushBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "bytes_total",
			Help:      "Tower bytes moved over the push path",
		}, []string{"role"}),
		ReplicationCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replication",
			Name:      "cycles_total",
			Help:      "Replication ticks by outcome",
		}, []string{"outcome"}),
		ReplicationLastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replication",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last fully replicated snapshot",
		}),
		StoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "request_duration_seconds",
			Help:      "Durable store request latency",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"op", "result"}),
		FallbackOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fallback",
			Name:      "attempts_total",
			Help:      "Fallback acquisition attempts by outcome",
		}, []string{"outcome"}),
		ArbitrationWins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "arbiter",
			Name:      "wins_total",
			Help:      "Failover attempts committed, by winning path",
		}, []string{"path"}),
	}

	r.reg.MustRegister(
		r.PushTransfers,
		r.PushBytes,
		r.ReplicationCycles,
		r.ReplicationLastSuccess,
		r.StoreLatency,
		r.FallbackOutcomes,
		r.ArbitrationWins,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Register registers c unless an equal collector is already present.
func (r *Registry) Register(c prometheus.Collector) error {
	err := r.reg.Register(c)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return nil
	}
	return err
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
