// Package metric provides Prometheus metrics for towerlink.
package metric

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FileAgeCollector reports how long ago a file was last modified.
// It is registered for the tower file on both roles, so an operator can see
// a stalled validator (sender) or a stale restore (receiver).
type FileAgeCollector struct {
	path string
	now  func() time.Time
	desc *prometheus.Desc
}

// NewFileAgeCollector creates a collector for path. role is attached as a
// constant label.
func NewFileAgeCollector(path, role string) *FileAgeCollector {
	return &FileAgeCollector{
		path: path,
		now:  time.Now,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "tower", "file_age_seconds"),
			"Seconds since the tower file was last modified",
			nil,
			prometheus.Labels{"role": role},
		),
	}
}

// Describe implements prometheus.Collector.
func (c *FileAgeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector. A missing file is reported by
// omitting the sample.
func (c *FileAgeCollector) Collect(ch chan<- prometheus.Metric) {
	st, err := os.Stat(c.path)
	if err != nil {
		return
	}
	age := c.now().Sub(st.ModTime()).Seconds()
	if age < 0 {
		age = 0
	}
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, age)
}
