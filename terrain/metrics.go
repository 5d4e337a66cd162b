package terrain

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	bodyIDLabel    = "body_id"
	passLabel      = "pass"
	errorTypeLabel = "error_type"
)

var (
	chunks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "terrain_chunks",
		Help: "The number of chunks in the registry.",
	}, []string{bodyIDLabel})

	leafChunks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "terrain_leaf_chunks",
		Help: "The number of leaf chunks.",
	}, []string{bodyIDLabel})

	splitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terrain_splits_total",
		Help: "The total number of chunk splits.",
	}, []string{bodyIDLabel})

	mergesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terrain_merges_total",
		Help: "The total number of chunk merges.",
	}, []string{bodyIDLabel})

	passLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "terrain_tick_pass_latency_seconds",
		Help:    "The time taken by each pass of a terrain tick.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	}, []string{bodyIDLabel, passLabel})

	tickErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terrain_tick_errors_total",
		Help: "The number of errors returned by terrain ticks.",
	}, []string{bodyIDLabel, errorTypeLabel})

	dirtyBatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "terrain_dirty_batch_size",
		Help:    "The number of chunks sent to the mesh generator in a batch.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{bodyIDLabel})
)

func instrumentChunkGauges(bodyID string, count, leaves int) {
	labels := prometheus.Labels{bodyIDLabel: bodyID}
	chunks.With(labels).Set(float64(count))
	leafChunks.With(labels).Set(float64(leaves))
}

func instrumentPass(bodyID, pass string, d time.Duration) {
	passLatency.
		With(prometheus.Labels{bodyIDLabel: bodyID, passLabel: pass}).
		Observe(d.Seconds())
}

func instrumentTick(bodyID string, s TickStats) {
	labels := prometheus.Labels{bodyIDLabel: bodyID}
	splitsTotal.With(labels).Add(float64(s.Splits))
	mergesTotal.With(labels).Add(float64(s.Merges))
}

func instrumentTickError(bodyID, errType string) {
	if errType == "" {
		errType = "unknown"
	}
	tickErrors.
		With(prometheus.Labels{bodyIDLabel: bodyID, errorTypeLabel: errType}).
		Inc()
}

func instrumentDirtyBatch(bodyID string, n int) {
	dirtyBatchSize.
		With(prometheus.Labels{bodyIDLabel: bodyID}).
		Observe(float64(n))
}

func deleteBodyMetrics(bodyID string) {
	labels := prometheus.Labels{bodyIDLabel: bodyID}
	chunks.DeletePartialMatch(labels)
	leafChunks.DeletePartialMatch(labels)
	splitsTotal.DeletePartialMatch(labels)
	mergesTotal.DeletePartialMatch(labels)
	passLatency.DeletePartialMatch(labels)
	tickErrors.DeletePartialMatch(labels)
	dirtyBatchSize.DeletePartialMatch(labels)
}
