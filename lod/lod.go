// Package lod implements a level of detail evaluator that runs on the CPU.
// It follows the same workgroup layout as the LOD compute kernel.
package lod

import (
	"context"
	"math"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/aukilabs/jord/terrain"
)

// WorkgroupSize is the number of chunks evaluated by a single worker.
const WorkgroupSize = 64

// Settings are the thresholds the evaluator compares chunks against.
type Settings struct {
	// The relative screen size above which a chunk is split and below which
	// chunks are merged.
	LODThreshold float32 `json:"lod_threshold"`

	// Chunks that are not bigger than this size are never split.
	MaxChunkSize float32 `json:"max_chunk_size"`

	// Chunks closer than this distance are split down to MaxChunkSize and never
	// merged.
	MaxDetailDistance float32 `json:"max_detail_distance"`

	// Higher values make the threshold grow faster past MaxDetailDistance.
	FalloffPower float32 `json:"falloff_power"`

	// The width of the zone over which the threshold grows. Zero disables the
	// falloff.
	FalloffDistance float32 `json:"falloff_distance"`
}

func DefaultSettings() Settings {
	return Settings{
		LODThreshold:      0.4,
		MaxChunkSize:      200,
		MaxDetailDistance: 1000,
		FalloffPower:      3,
		FalloffDistance:   10000,
	}
}

// Threshold returns the LOD threshold at the given distance from the camera.
func (s Settings) Threshold(distance float32) float32 {
	if s.FalloffDistance <= 0 {
		return s.LODThreshold
	}

	past := distance - s.MaxDetailDistance
	if past <= 0 {
		return s.LODThreshold
	}

	f := math.Pow(float64(past/s.FalloffDistance), float64(s.FalloffPower))
	return s.LODThreshold * float32(1+f)
}

// Selects reports whether the chunk is a candidate for the request mode.
func (s Settings) Selects(d terrain.ChunkDescriptor, req terrain.LODRequest) bool {
	switch req.Mode {
	case terrain.MergeMode:
		if d.IsLeaf || !d.CanMergeChildren {
			return false
		}
	case terrain.SplitMode:
		if !d.IsLeaf {
			return false
		}
	default:
		return false
	}

	size := d.Size(req.BodyRadius)
	distance := d.WorldCenter(req.BodyPosition, req.BodyRadius).
		Sub(req.Camera).
		Len()
	ratio := float32(math.MaxFloat32)
	if distance > 0 {
		ratio = size / distance
	}
	threshold := s.Threshold(distance)

	if req.Mode == terrain.MergeMode {
		return distance >= s.MaxDetailDistance && ratio < threshold
	}
	return size > s.MaxChunkSize && (distance < s.MaxDetailDistance || ratio > threshold)
}

// Evaluator selects chunks by splitting them in workgroups evaluated in
// parallel. Selected indices are returned in registry order.
type Evaluator struct {
	Settings Settings

	// The maximum number of workgroups evaluated at once. Defaults to
	// GOMAXPROCS.
	Workers int
}

func NewEvaluator(s Settings) *Evaluator {
	return &Evaluator{Settings: s}
}

func (e *Evaluator) Evaluate(ctx context.Context, chunks []terrain.ChunkDescriptor, req terrain.LODRequest) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	groups := (len(chunks) + WorkgroupSize - 1) / WorkgroupSize
	selected := make([][]int, groups)

	pool := pond.NewPool(min(workers, groups))
	defer pool.StopAndWait()

	var wg sync.WaitGroup
	for g := range groups {
		wg.Add(1)

		pool.Submit(func() {
			defer wg.Done()

			if ctx.Err() != nil {
				return
			}

			end := min((g+1)*WorkgroupSize, len(chunks))
			for i := g * WorkgroupSize; i < end; i++ {
				if e.Settings.Selects(chunks[i], req) {
					selected[g] = append(selected[g], chunks[i].Index)
				}
			}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []int
	for _, s := range selected {
		result = append(result, s...)
	}
	return result, nil
}
