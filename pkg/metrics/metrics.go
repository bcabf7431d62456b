// Package metrics provides Prometheus metrics for the case graph service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshot load outcomes.
const (
	SnapshotLoaded    = "loaded"
	SnapshotMissing   = "missing"
	SnapshotFailed    = "failed"
	SnapshotDisabled  = "disabled"
	SnapshotSaved     = "saved"
	SnapshotSaveError = "save_failed"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ClusterRequestsTotal   *prometheus.CounterVec
	ClusterRequestDuration *prometheus.HistogramVec
	ClusterSubsetSize      prometheus.Histogram

	SimilarRequestsTotal *prometheus.CounterVec

	NetworkNodes     prometheus.Gauge
	NetworkEdges     prometheus.Gauge
	NetworkBuiltAt   prometheus.Gauge
	NetworkBuildTime prometheus.Histogram

	SnapshotOperationsTotal *prometheus.CounterVec
}

// NewMetrics creates all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.ClusterRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casegraph_cluster_requests_total",
			Help: "Total number of clustering requests",
		},
		[]string{"method", "status"},
	)

	m.ClusterRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casegraph_cluster_duration_seconds",
			Help:    "Duration of clustering computations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)

	m.ClusterSubsetSize = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "casegraph_cluster_subset_size",
			Help:    "Number of opinions per clustering request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	m.SimilarRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casegraph_similar_requests_total",
			Help: "Total number of similar case lookups",
		},
		[]string{"status"},
	)

	m.NetworkNodes = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "casegraph_network_nodes",
			Help: "Number of opinions in the current citation network",
		},
	)

	m.NetworkEdges = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "casegraph_network_edges",
			Help: "Number of edges in the current citation network",
		},
	)

	m.NetworkBuiltAt = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "casegraph_network_built_at_seconds",
			Help: "Unix time the current citation network was built",
		},
	)

	m.NetworkBuildTime = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "casegraph_network_build_duration_seconds",
			Help:    "Duration of citation network construction in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	m.SnapshotOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casegraph_snapshot_operations_total",
			Help: "Snapshot cache operations by outcome",
		},
		[]string{"outcome"},
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordCluster records a clustering request with its status.
func (m *Metrics) RecordCluster(method, status string, size int, duration time.Duration) {
	if m == nil {
		return
	}
	m.ClusterRequestsTotal.WithLabelValues(method, status).Inc()
	m.ClusterRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
	m.ClusterSubsetSize.Observe(float64(size))
}

// RecordSimilar records a similar case lookup.
func (m *Metrics) RecordSimilar(status string) {
	if m == nil {
		return
	}
	m.SimilarRequestsTotal.WithLabelValues(status).Inc()
}

// RecordSnapshot records a snapshot cache outcome.
func (m *Metrics) RecordSnapshot(outcome string) {
	if m == nil {
		return
	}
	m.SnapshotOperationsTotal.WithLabelValues(outcome).Inc()
}

// RecordBuild records a network construction.
func (m *Metrics) RecordBuild(duration time.Duration) {
	if m == nil {
		return
	}
	m.NetworkBuildTime.Observe(duration.Seconds())
}

// UpdateNetwork sets the gauges describing the current network.
func (m *Metrics) UpdateNetwork(nodes, edges int, builtAt time.Time) {
	if m == nil {
		return
	}
	m.NetworkNodes.Set(float64(nodes))
	m.NetworkEdges.Set(float64(edges))
	m.NetworkBuiltAt.Set(float64(builtAt.Unix()))
}

// Status maps an error to a metric status label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
