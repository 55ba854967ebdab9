// Package metrics counts acquisition outcomes for a run and exports them in
// the Prometheus text format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wallharvest"

// Metrics holds the run's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	outcomes           *prometheus.CounterVec
	bytes              *prometheus.CounterVec
	attempts           prometheus.Histogram
	collectionDuration *prometheus.GaugeVec
	lastRun            prometheus.Gauge
}

// New creates and registers the run collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "targets_total",
			Help:      "Targets processed, by collection and outcome.",
		}, []string{"collection", "outcome"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written for newly downloaded files.",
		}, []string{"collection"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempts_per_target",
			Help:      "Transfer attempts made per target that reached the network.",
			Buckets:   []float64{1, 2, 3, 5, 10, 20},
		}),
		collectionDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_duration_seconds",
			Help:      "Wall time spent on the last run of each collection.",
		}, []string{"collection"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the metrics were last exported.",
		}),
	}

	m.registry.MustRegister(m.outcomes, m.bytes, m.attempts, m.collectionDuration, m.lastRun)
	return m
}

// RecordOutcome counts one target's terminal outcome
func (m *Metrics) RecordOutcome(collection, kind string, attempts int, bytes int64) {
	m.outcomes.WithLabelValues(collection, kind).Inc()
	if bytes > 0 {
		m.bytes.WithLabelValues(collection).Add(float64(bytes))
	}
	if attempts > 0 {
		m.attempts.Observe(float64(attempts))
	}
}

// RecordCollection stores how long a collection took
func (m *Metrics) RecordCollection(collection string, elapsed time.Duration) {
	m.collectionDuration.WithLabelValues(collection).Set(elapsed.Seconds())
}

// Registry exposes the underlying registry, for serving or inspection
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every metric to path atomically, in the format read by
// node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	m.lastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
