package mesh

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/jord/terrain"
)

// WithLogs logs generated batches at debug level and failures at error level.
func WithLogs(g terrain.MeshGenerator, bodyID string) terrain.MeshGenerator {
	return &generatorWithLogs{
		MeshGenerator: g,
		bodyID:        bodyID,
	}
}

type generatorWithLogs struct {
	terrain.MeshGenerator

	bodyID string
}

func (g *generatorWithLogs) Generate(ctx context.Context, chunks []terrain.ChunkDescriptor, bodyRadius float32, bodySeed int32) (terrain.MeshSeq, error) {
	seq, err := g.MeshGenerator.Generate(ctx, chunks, bodyRadius, bodySeed)
	if err != nil {
		logs.WithTag("body_id", g.bodyID).
			Error(errors.New("generating chunk meshes failed").
				WithTag("chunks", len(chunks)).
				Wrap(err))
		return seq, err
	}

	logs.WithTag("body_id", g.bodyID).
		WithTag("chunks", len(chunks)).
		Debug("chunk meshes generated")
	return seq, nil
}
