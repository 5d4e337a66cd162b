package terrain

import (
	"context"
	"iter"

	"github.com/go-gl/mathgl/mgl32"
)

// LODMode selects which candidates an LOD evaluator returns.
type LODMode int

const (
	// MergeMode selects non-leaf chunks whose children can be merged back.
	MergeMode LODMode = iota

	// SplitMode selects leaf chunks that need more detail.
	SplitMode
)

func (m LODMode) String() string {
	switch m {
	case MergeMode:
		return "merge"
	case SplitMode:
		return "split"
	default:
		return "unknown"
	}
}

// LODRequest holds the viewer and body state an evaluation is made against.
type LODRequest struct {
	Camera       mgl32.Vec3
	BodyPosition mgl32.Vec3
	BodyRadius   float32
	Mode         LODMode
}

// LODEvaluator selects the registry indices eligible for a merge or a split.
// Implementations must not retain or modify chunks. The returned indices are
// not ordered.
type LODEvaluator interface {
	Evaluate(ctx context.Context, chunks []ChunkDescriptor, req LODRequest) ([]int, error)
}

// MeshSeq yields the vertices and triangle indices of each generated chunk, in
// the order the chunks were submitted. It can only be iterated once.
type MeshSeq = iter.Seq2[[]mgl32.Vec3, []uint32]

// MeshGenerator generates chunk geometry. The geometry is deterministic for a
// given footprint, radius and seed. Normals and bounds are left to the caller.
type MeshGenerator interface {
	Generate(ctx context.Context, chunks []ChunkDescriptor, bodyRadius float32, bodySeed int32) (MeshSeq, error)
}

// LODEvaluatorFunc adapts a function to the LODEvaluator interface.
type LODEvaluatorFunc func(ctx context.Context, chunks []ChunkDescriptor, req LODRequest) ([]int, error)

func (f LODEvaluatorFunc) Evaluate(ctx context.Context, chunks []ChunkDescriptor, req LODRequest) ([]int, error) {
	return f(ctx, chunks, req)
}

// MeshGeneratorFunc adapts a function to the MeshGenerator interface.
type MeshGeneratorFunc func(ctx context.Context, chunks []ChunkDescriptor, bodyRadius float32, bodySeed int32) (MeshSeq, error)

func (f MeshGeneratorFunc) Generate(ctx context.Context, chunks []ChunkDescriptor, bodyRadius float32, bodySeed int32) (MeshSeq, error) {
	return f(ctx, chunks, bodyRadius, bodySeed)
}
