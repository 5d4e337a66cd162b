package lod

import (
	"context"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/jord/terrain"
)

// WithLogs logs evaluations at debug level and failures at error level.
func WithLogs(e terrain.LODEvaluator, bodyID string) terrain.LODEvaluator {
	return &evaluatorWithLogs{
		LODEvaluator: e,
		bodyID:       bodyID,
	}
}

type evaluatorWithLogs struct {
	terrain.LODEvaluator

	bodyID string
}

func (e *evaluatorWithLogs) Evaluate(ctx context.Context, chunks []terrain.ChunkDescriptor, req terrain.LODRequest) ([]int, error) {
	res, err := e.LODEvaluator.Evaluate(ctx, chunks, req)
	if err != nil {
		logs.WithTag("body_id", e.bodyID).
			WithTag("mode", req.Mode.String()).
			Error(errors.New("evaluating chunks failed").
				WithTag("chunks", len(chunks)).
				Wrap(err))
		return res, err
	}

	if len(res) != 0 {
		logs.WithTag("body_id", e.bodyID).
			WithTag("mode", req.Mode.String()).
			WithTag("chunks", len(chunks)).
			WithTag("selected", len(res)).
			Debug("chunks evaluated")
	}
	return res, nil
}
