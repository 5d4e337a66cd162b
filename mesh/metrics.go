package mesh

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
	errTypeLabel = "error_type"
)

var (
	generationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mesh_generation_latency_seconds",
		Help:    "The time taken to generate a batch of chunk meshes.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	}, []string{bodyIDLabel})

	generatedChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mesh_generated_chunks_total",
		Help: "The number of chunk meshes generated.",
	}, []string{bodyIDLabel})

	generationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mesh_generation_errors_total",
		Help: "The number of failed mesh generations.",
	}, []string{bodyIDLabel, errTypeLabel})
)

// WithMetrics instruments a mesh generator.
func WithMetrics(g terrain.MeshGenerator, bodyID string) terrain.MeshGenerator {
	return &generatorWithMetrics{
		MeshGenerator: g,
		bodyID:        bodyID,
	}
}

type generatorWithMetrics struct {
	terrain.MeshGenerator

	bodyID string
}

func (g *generatorWithMetrics) Generate(ctx context.Context, chunks []terrain.ChunkDescriptor, bodyRadius float32, bodySeed int32) (terrain.MeshSeq, error) {
	labels := prometheus.Labels{bodyIDLabel: g.bodyID}

	start := time.Now()
	seq, err := g.MeshGenerator.Generate(ctx, chunks, bodyRadius, bodySeed)
	generationLatency.With(labels).Observe(time.Since(start).Seconds())

	if err != nil {
		generationErrors.
			With(prometheus.Labels{
				bodyIDLabel:  g.bodyID,
				errTypeLabel: errors.Type(err),
			}).
			Inc()
		return seq, err
	}

	generatedChunks.With(labels).Add(float64(len(chunks)))
	return seq, nil
}
