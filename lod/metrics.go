package lod

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/jord/terrain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	bodyIDLabel  = "body_id"
	modeLabel    = "mode"
	errTypeLabel = "error_type"
)

var (
	evaluationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lod_evaluation_latency_seconds",
		Help:    "The time taken to evaluate chunks.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	}, []string{bodyIDLabel, modeLabel})

	evaluatedChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lod_evaluated_chunks_total",
		Help: "The number of chunks submitted for evaluation.",
	}, []string{bodyIDLabel, modeLabel})

	selectedChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lod_selected_chunks_total",
		Help: "The number of chunks selected by evaluations.",
	}, []string{bodyIDLabel, modeLabel})

	evaluationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lod_evaluation_errors_total",
		Help: "The number of failed evaluations.",
	}, []string{bodyIDLabel, modeLabel, errTypeLabel})
)

// WithMetrics instruments an evaluator.
func WithMetrics(e terrain.LODEvaluator, bodyID string) terrain.LODEvaluator {
	return &evaluatorWithMetrics{
		LODEvaluator: e,
		bodyID:       bodyID,
	}
}

type evaluatorWithMetrics struct {
	terrain.LODEvaluator

	bodyID string
}

func (e *evaluatorWithMetrics) Evaluate(ctx context.Context, chunks []terrain.ChunkDescriptor, req terrain.LODRequest) ([]int, error) {
	labels := prometheus.Labels{
		bodyIDLabel: e.bodyID,
		modeLabel:   req.Mode.String(),
	}

	start := time.Now()
	res, err := e.LODEvaluator.Evaluate(ctx, chunks, req)
	evaluationLatency.With(labels).Observe(time.Since(start).Seconds())

	if err != nil {
		evaluationErrors.
			With(prometheus.Labels{
				bodyIDLabel:  e.bodyID,
				modeLabel:    req.Mode.String(),
				errTypeLabel: errors.Type(err),
			}).
			Inc()
		return res, err
	}

	evaluatedChunks.With(labels).Add(float64(len(chunks)))
	selectedChunks.With(labels).Add(float64(len(res)))
	return res, nil
}
