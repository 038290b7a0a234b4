// Package prom implements the observability hooks with Prometheus metrics.
package prom

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/intervis/pkg/observability"
)

var durationBuckets = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800}

// Metrics holds every collector and implements PipelineHooks, GraphHooks
// and CacheHooks.
type Metrics struct {
	BatchesSealed    prometheus.Counter
	BatchesReused    prometheus.Counter
	EngineDuration   *prometheus.HistogramVec
	ObserversDecoded prometheus.Counter
	ObserversFailed  prometheus.Counter
	ViewshedsWritten prometheus.Counter
	Checkpoint       prometheus.Gauge

	TriplesSkipped *prometheus.CounterVec
	GraphBuilds    *prometheus.CounterVec
	GraphRows      prometheus.Counter
	GraphEdges     prometheus.Gauge
	GraphNodes     prometheus.Gauge

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheBytes  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intervis_batches_sealed_total",
			Help: "Observer batches sealed",
		}),
		BatchesReused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intervis_batches_reused_total",
			Help: "Batches whose stored artifacts were reused instead of invoking the engine",
		}),
		EngineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intervis_engine_duration_seconds",
			Help:    "Visibility engine invocation time",
			Buckets: durationBuckets,
		}, []string{"status"}),
		ObserversDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intervis_observers_decoded_total",
			Help: "Observers decoded into viewsheds",
		}),
		ObserversFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intervis_observers_failed_total",
			Help: "Observers whose decode or vectorization failed",
		}),
		ViewshedsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intervis_viewsheds_written_total",
			Help: "Viewsheds durably written",
		}),
		Checkpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "intervis_checkpoint_point_id",
			Help: "Largest point id durably written",
		}),
		TriplesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intervis_graph_triples_skipped_total",
			Help: "Intersection rows dropped by the graph builder",
		}, []string{"reason"}),
		GraphBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intervis_graph_builds_total",
			Help: "Completed graph builds",
		}, []string{"status"}),
		GraphRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intervis_graph_rows_total",
			Help: "Intersection rows read by the graph builder",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "intervis_graph_edges",
			Help: "Edges in the last built graph",
		}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "intervis_graph_nodes",
			Help: "Nodes in the last built graph",
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intervis_cache_hits_total",
			Help: "Cache hits",
		}, []string{"key_type"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intervis_cache_misses_total",
			Help: "Cache misses",
		}, []string{"key_type"}),
		CacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intervis_cache_set_bytes_total",
			Help: "Bytes written to the cache",
		}, []string{"key_type"}),
	}
	reg.MustRegister(
		m.BatchesSealed, m.BatchesReused, m.EngineDuration,
		m.ObserversDecoded, m.ObserversFailed, m.ViewshedsWritten, m.Checkpoint,
		m.TriplesSkipped, m.GraphBuilds, m.GraphRows, m.GraphEdges, m.GraphNodes,
		m.CacheHits, m.CacheMisses, m.CacheBytes,
	)
	return m
}

// Install registers m as the pipeline, graph and cache hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetGraphHooks(m)
	observability.SetCacheHooks(m)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) OnBatchSealed(context.Context, int, int) { m.BatchesSealed.Inc() }
func (m *Metrics) OnBatchReused(context.Context, int)      { m.BatchesReused.Inc() }

func (m *Metrics) OnEngineComplete(_ context.Context, _ int, d time.Duration, err error) {
	m.EngineDuration.WithLabelValues(status(err)).Observe(d.Seconds())
}

func (m *Metrics) OnObserverDecoded(context.Context, int, int)       { m.ObserversDecoded.Inc() }
func (m *Metrics) OnObserverFailed(context.Context, int, int, error) { m.ObserversFailed.Inc() }

func (m *Metrics) OnCheckpoint(_ context.Context, written int, maxPointID int64) {
	m.ViewshedsWritten.Add(float64(written))
	m.Checkpoint.Set(float64(maxPointID))
}

func (m *Metrics) OnTripleSkipped(_ context.Context, reason string) {
	m.TriplesSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) OnGraphBuilt(_ context.Context, rows, nodes, edges int, _ time.Duration, err error) {
	m.GraphBuilds.WithLabelValues(status(err)).Inc()
	m.GraphRows.Add(float64(rows))
	m.GraphNodes.Set(float64(nodes))
	m.GraphEdges.Set(float64(edges))
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheHits.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheMisses.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.GraphHooks    = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
)
