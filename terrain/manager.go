package terrain

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/jord/featureflag"
	"github.com/aukilabs/jord/models"
	"github.com/go-gl/mathgl/mgl32"
)

// Option configures a manager.
type Option func(*Manager)

// WithFeatureFlags sets the feature flags that can disable tick passes.
func WithFeatureFlags(f featureflag.FeatureFlag) Option {
	return func(m *Manager) {
		m.flags = f
	}
}

// TickStats describes what happened during a tick.
type TickStats struct {
	Frame       uint64        `json:"frame"`
	Merges      int           `json:"merges"`
	Splits      int           `json:"splits"`
	Regenerated int           `json:"regenerated"`
	MergePass   time.Duration `json:"merge_pass"`
	Compaction  time.Duration `json:"compaction"`
	SplitPass   time.Duration `json:"split_pass"`
	MeshPass    time.Duration `json:"mesh_pass"`
	Total       time.Duration `json:"total"`
}

// Manager owns the chunk quadtree of a body, the registry mirroring it and the
// visual objects of its leaves.
//
// Manager methods are safe for concurrent use. Chunk methods are not and must
// not be called while a tick is running.
type Manager struct {
	body      models.Body
	pool      *models.ObjectPool
	evaluator LODEvaluator
	generator MeshGenerator
	flags     featureflag.FeatureFlag

	mutex       sync.Mutex
	registry    registry
	roots       [6]*Chunk
	removals    []*Chunk
	dirty       []*Chunk
	frame       uint64
	lastTick    TickStats
	totalSplits uint64
	totalMerges uint64
	totalRegens uint64
}

// NewManager creates a manager with the 6 root chunks of the body. The pool
// must not be used by anything else while the manager is alive.
func NewManager(
	body models.Body,
	pool *models.ObjectPool,
	evaluator LODEvaluator,
	generator MeshGenerator,
	opts ...Option,
) (*Manager, error) {
	m := &Manager{
		body:      body,
		pool:      pool,
		evaluator: evaluator,
		generator: generator,
		flags:     featureflag.New(nil),
	}
	for _, opt := range opts {
		opt(m)
	}

	for i, f := range Faces {
		obj, err := pool.Acquire(body.Transform)
		if err != nil {
			for _, r := range m.roots[:i] {
				pool.Release(r.object)
			}
			return nil, errors.New("creating root chunk failed").
				WithType(ErrTypePoolExhausted).
				WithTag("body_id", body.ID).
				WithTag("face", f.Name).
				Wrap(err)
		}

		root := &Chunk{
			manager: m,
			object:  obj,
			face:    i,
		}
		m.registry.add(root, RootDescriptor(f))
		m.roots[i] = root
		m.markDirty(root)
	}

	instrumentChunkGauges(body.ID, m.registry.len(), m.leafCount())
	return m, nil
}

// Body returns the body the terrain belongs to.
func (m *Manager) Body() models.Body {
	return m.body
}

// Tick runs a frame of level of detail updates against the given camera
// position: merge pass, registry compaction, split pass and mesh
// regeneration.
//
// A failing pass is abandoned without leaving the tree inconsistent and the
// following passes still run. The first error is returned. Chunks whose
// geometry could not be generated are retried on the next tick.
func (m *Manager) Tick(ctx context.Context, camera mgl32.Vec3) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	start := time.Now()
	m.frame++
	stats := TickStats{Frame: m.frame}

	var tickErr error
	fail := func(err error) {
		if err == nil {
			return
		}
		instrumentTickError(m.body.ID, errors.Type(err))
		if tickErr == nil {
			tickErr = err
			return
		}
		logs.WithTag("body_id", m.body.ID).
			WithTag("frame", m.frame).
			Warn(err)
	}

	m.flags.IfNotSet(featureflag.FlagDisableMergePass, func() {
		passStart := time.Now()
		n, err := m.mergePass(ctx, camera)
		stats.Merges = n
		stats.MergePass = time.Since(passStart)
		instrumentPass(m.body.ID, "merge", stats.MergePass)
		fail(err)
	})

	compactStart := time.Now()
	m.compact()
	stats.Compaction = time.Since(compactStart)
	instrumentPass(m.body.ID, "compaction", stats.Compaction)

	m.flags.IfNotSet(featureflag.FlagDisableSplitPass, func() {
		passStart := time.Now()
		n, err := m.splitPass(ctx, camera)
		stats.Splits = n
		stats.SplitPass = time.Since(passStart)
		instrumentPass(m.body.ID, "split", stats.SplitPass)
		fail(err)
	})

	m.flags.IfNotSet(featureflag.FlagDisableMeshGeneration, func() {
		passStart := time.Now()
		n, err := m.regenerate(ctx)
		stats.Regenerated = n
		stats.MeshPass = time.Since(passStart)
		instrumentPass(m.body.ID, "mesh", stats.MeshPass)
		fail(err)
	})

	stats.Total = time.Since(start)
	m.lastTick = stats
	m.totalMerges += uint64(stats.Merges)
	m.totalSplits += uint64(stats.Splits)
	m.totalRegens += uint64(stats.Regenerated)

	instrumentTick(m.body.ID, stats)
	instrumentChunkGauges(m.body.ID, m.registry.len(), m.leafCount())

	if stats.Merges != 0 || stats.Splits != 0 {
		logs.WithTag("body_id", m.body.ID).
			WithTag("frame", stats.Frame).
			WithTag("merges", stats.Merges).
			WithTag("splits", stats.Splits).
			WithTag("regenerated", stats.Regenerated).
			WithTag("chunks", m.registry.len()).
			WithTag("duration", stats.Total).
			Debug("terrain updated")
	}
	return tickErr
}

func (m *Manager) mergePass(ctx context.Context, camera mgl32.Vec3) (int, error) {
	chunks, err := m.evaluate(ctx, camera, MergeMode)
	if err != nil {
		return 0, err
	}

	merges := 0
	for _, c := range chunks {
		if !c.CanMerge() {
			logs.WithTag("body_id", m.body.ID).
				WithTag("index", c.index).
				Debug("skipping chunk that cannot be merged")
			continue
		}
		c.Merge()
		merges++
	}
	return merges, nil
}

func (m *Manager) compact() {
	for _, c := range m.removals {
		m.registry.remove(c)
	}
	clear(m.removals)
	m.removals = m.removals[:0]
	m.pruneDirty()
}

// pruneDirty drops the dirty chunks that are no longer leaves or were removed.
func (m *Manager) pruneDirty() {
	n := 0
	for _, c := range m.dirty {
		if !c.IsLeaf() || c.object == nil {
			c.dirty = false
			continue
		}
		m.dirty[n] = c
		n++
	}
	clear(m.dirty[n:])
	m.dirty = m.dirty[:n]
}

func (m *Manager) splitPass(ctx context.Context, camera mgl32.Vec3) (int, error) {
	chunks, err := m.evaluate(ctx, camera, SplitMode)
	if err != nil {
		return 0, err
	}

	splits := 0
	for _, c := range chunks {
		if !c.IsLeaf() {
			continue
		}
		if err := c.Split(); err != nil {
			return splits, err
		}
		splits++
	}
	return splits, nil
}

// evaluate runs the evaluator on the current registry and resolves the
// returned indices to chunks. No chunk is returned when an index is invalid.
func (m *Manager) evaluate(ctx context.Context, camera mgl32.Vec3, mode LODMode) ([]*Chunk, error) {
	if m.registry.len() == 0 {
		return nil, nil
	}

	indices, err := m.evaluator.Evaluate(ctx, m.registry.snapshot(), LODRequest{
		Camera:       camera,
		BodyPosition: m.body.Transform.Position,
		BodyRadius:   m.body.Radius,
		Mode:         mode,
	})
	if err != nil {
		return nil, errors.New("lod evaluation failed").
			WithType(ErrTypeEvaluatorFailed).
			WithTag("body_id", m.body.ID).
			WithTag("mode", mode.String()).
			Wrap(err)
	}

	chunks := make([]*Chunk, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= m.registry.len() {
			return nil, errors.New("lod evaluator returned an invalid index").
				WithType(ErrTypeInvalidIndex).
				WithTag("body_id", m.body.ID).
				WithTag("mode", mode.String()).
				WithTag("index", i).
				WithTag("count", m.registry.len())
		}
		chunks = append(chunks, m.registry.chunks[i])
	}
	return chunks, nil
}

// regenerate generates the geometry of dirty leaves in a single batch.
func (m *Manager) regenerate(ctx context.Context) (int, error) {
	m.pruneDirty()
	pending := slices.Clone(m.dirty)

	if len(pending) == 0 {
		return 0, nil
	}
	instrumentDirtyBatch(m.body.ID, len(pending))

	batch := make([]ChunkDescriptor, len(pending))
	for i, c := range pending {
		batch[i] = c.Descriptor()
	}

	seq, err := m.generator.Generate(ctx, batch, m.body.Radius, m.body.Seed)
	if err != nil {
		return 0, errors.New("mesh generation failed").
			WithType(ErrTypeGeneratorFailed).
			WithTag("body_id", m.body.ID).
			WithTag("batch_size", len(batch)).
			Wrap(err)
	}

	generated := 0
	applied := 0
	for vertices, triangles := range seq {
		generated++
		if applied == len(pending) {
			continue
		}

		c := pending[applied]
		mesh := &c.object.Mesh
		mesh.Set(vertices, triangles)
		mesh.RecalculateNormals()
		mesh.RecalculateBounds()
		c.dirty = false
		applied++
	}

	n := copy(m.dirty, pending[applied:])
	clear(m.dirty[n:])
	m.dirty = m.dirty[:n]

	if generated != len(pending) {
		return applied, errors.New("mesh generator returned an unexpected number of meshes").
			WithType(ErrTypeGeneratorFailed).
			WithTag("body_id", m.body.ID).
			WithTag("batch_size", len(batch)).
			WithTag("generated", generated)
	}
	return applied, nil
}

func (m *Manager) markDirty(c *Chunk) {
	if c.dirty {
		return
	}
	c.dirty = true
	m.dirty = append(m.dirty, c)
}

func (m *Manager) queueRemoval(c *Chunk) {
	c.removed = true
	m.removals = append(m.removals, c)
}

func (m *Manager) leafCount() int {
	n := 0
	for _, d := range m.registry.descriptors {
		if d.IsLeaf {
			n++
		}
	}
	return n
}

// Count returns the number of chunks in the registry.
func (m *Manager) Count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.registry.len()
}

// Descriptor returns the descriptor at the given registry slot.
func (m *Manager) Descriptor(i int) (ChunkDescriptor, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if i < 0 || i >= m.registry.len() {
		return ChunkDescriptor{}, false
	}
	return m.registry.descriptors[i], true
}

// Descriptors returns a copy of the registry.
func (m *Manager) Descriptors() []ChunkDescriptor {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.registry.snapshot()
}

// Chunk returns the chunk at the given registry slot or nil when the slot is
// out of range.
func (m *Manager) Chunk(i int) *Chunk {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if i < 0 || i >= m.registry.len() {
		return nil
	}
	return m.registry.chunks[i]
}

// Roots returns the chunks covering each of the cube Faces.
func (m *Manager) Roots() [6]*Chunk {
	return m.roots
}

// Walk visits the tree depth first, starting with the roots in Faces order.
// Returning false from fn stops the walk. fn must not call other manager
// methods.
func (m *Manager) Walk(fn func(c *Chunk) bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.walk(fn)
}

func (m *Manager) walk(fn func(c *Chunk) bool) {
	var visit func(c *Chunk) bool
	visit = func(c *Chunk) bool {
		if !fn(c) {
			return false
		}
		for _, child := range c.children {
			if child != nil && !visit(child) {
				return false
			}
		}
		return true
	}

	for _, r := range m.roots {
		if !visit(r) {
			return
		}
	}
}

// DebugInfo describes the state of the terrain.
type DebugInfo struct {
	BodyID      string           `json:"body_id"`
	Frame       uint64           `json:"frame"`
	Chunks      int              `json:"chunks"`
	Leaves      int              `json:"leaves"`
	Dirty       int              `json:"dirty"`
	MaxDepth    int              `json:"max_depth"`
	Depths      []int            `json:"depths"`
	Splits      uint64           `json:"splits"`
	Merges      uint64           `json:"merges"`
	Regenerated uint64           `json:"regenerated"`
	Pool        models.PoolStats `json:"pool"`
	LastTick    TickStats        `json:"last_tick"`
	Flags       []string         `json:"flags"`
}

// DebugInfo returns a summary of the terrain state. Depths holds the number of
// leaves per depth.
func (m *Manager) DebugInfo() DebugInfo {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	info := DebugInfo{
		BodyID:      m.body.ID,
		Frame:       m.frame,
		Chunks:      m.registry.len(),
		Dirty:       len(m.dirty),
		Splits:      m.totalSplits,
		Merges:      m.totalMerges,
		Regenerated: m.totalRegens,
		Pool:        m.pool.Stats(),
		LastTick:    m.lastTick,
		Flags:       m.flags.List(),
	}

	for _, c := range m.registry.chunks {
		if c.depth > info.MaxDepth {
			info.MaxDepth = c.depth
		}
	}
	info.Depths = make([]int, info.MaxDepth+1)
	for _, c := range m.registry.chunks {
		if c.IsLeaf() {
			info.Leaves++
			info.Depths[c.depth]++
		}
	}
	return info
}

// Close releases the visual objects of every leaf and removes the metrics of
// the body. The manager must not be used afterwards.
func (m *Manager) Close() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, c := range m.registry.chunks {
		m.pool.Release(c.object)
		c.object = nil
	}
	deleteBodyMetrics(m.body.ID)
}
