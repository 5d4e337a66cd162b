// Package mesh generates chunk geometry on the CPU with the same buffer layout
// as the terrain compute kernel.
package mesh

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/jord/terrain"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"
)

const ErrTypeInvalidSettings = "invalid_mesh_settings"

// Settings describe the geometry of a chunk.
type Settings struct {
	// The number of vertices along each side of a chunk.
	Resolution int `json:"resolution"`

	// The height of the terrain relative to the body radius.
	Amplitude float32 `json:"amplitude"`

	Octaves    int     `json:"octaves"`
	Frequency  float32 `json:"frequency"`
	Lacunarity float32 `json:"lacunarity"`
	Gain       float32 `json:"gain"`
}

func DefaultSettings() Settings {
	return Settings{
		Resolution: 8,
		Amplitude:  0.01,
		Octaves:    5,
		Frequency:  3,
		Lacunarity: 2,
		Gain:       0.45,
	}
}

// VertexCount returns the number of vertices of a chunk.
func (s Settings) VertexCount() int {
	return s.Resolution * s.Resolution
}

// IndexCount returns the number of triangle indices of a chunk.
func (s Settings) IndexCount() int {
	return (s.Resolution - 1) * (s.Resolution - 1) * 6
}

func (s Settings) Validate() error {
	if s.Resolution < 2 {
		return errors.New("chunk resolution must be at least 2").
			WithType(ErrTypeInvalidSettings).
			WithTag("resolution", s.Resolution)
	}
	if s.Octaves < 0 {
		return errors.New("noise octaves must not be negative").
			WithType(ErrTypeInvalidSettings).
			WithTag("octaves", s.Octaves)
	}
	return nil
}

// Height returns the fractal noise value at a point of the unit sphere. The
// value is normalized by the sum of the octave amplitudes.
func (s Settings) Height(n opensimplex.Noise32, p mgl32.Vec3) float32 {
	var height, norm float32
	amplitude := float32(1)
	frequency := s.Frequency

	for o := 0; o < s.Octaves; o++ {
		height += n.Eval3(p.X()*frequency, p.Y()*frequency, p.Z()*frequency) * amplitude
		norm += amplitude
		amplitude *= s.Gain
		frequency *= s.Lacunarity
	}

	if norm == 0 {
		return 0
	}
	return height / norm
}

// Generator generates chunk meshes in parallel, one chunk per worker at a
// time, into flat buffers that are sliced per chunk.
type Generator struct {
	Settings Settings

	// The maximum number of chunks generated at once. Defaults to GOMAXPROCS.
	Workers int

	noiseMutex sync.Mutex
	noises     map[int32]opensimplex.Noise32
}

func NewGenerator(s Settings) *Generator {
	return &Generator{Settings: s}
}

func (g *Generator) Generate(ctx context.Context, chunks []terrain.ChunkDescriptor, bodyRadius float32, bodySeed int32) (terrain.MeshSeq, error) {
	if err := g.Settings.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return func(yield func([]mgl32.Vec3, []uint32) bool) {}, nil
	}

	vertexCount := g.Settings.VertexCount()
	indexCount := g.Settings.IndexCount()
	vertices := make([]mgl32.Vec3, vertexCount*len(chunks))
	triangles := make([]uint32, indexCount*len(chunks))
	noise := g.noise(bodySeed)

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	pool := pond.NewPool(min(workers, len(chunks)))
	defer pool.StopAndWait()

	var wg sync.WaitGroup
	for i, d := range chunks {
		wg.Add(1)

		pool.Submit(func() {
			defer wg.Done()

			if ctx.Err() != nil {
				return
			}

			g.generateChunk(
				d,
				bodyRadius,
				noise,
				vertices[i*vertexCount:(i+1)*vertexCount],
				triangles[i*indexCount:(i+1)*indexCount],
			)
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var consumed atomic.Bool
	return func(yield func([]mgl32.Vec3, []uint32) bool) {
		if consumed.Swap(true) {
			return
		}

		for i := range chunks {
			v := vertices[i*vertexCount : (i+1)*vertexCount : (i+1)*vertexCount]
			t := triangles[i*indexCount : (i+1)*indexCount : (i+1)*indexCount]
			if !yield(v, t) {
				return
			}
		}
	}, nil
}

func (g *Generator) generateChunk(d terrain.ChunkDescriptor, radius float32, noise opensimplex.Noise32, vertices []mgl32.Vec3, triangles []uint32) {
	res := g.Settings.Resolution
	step := 1 / float32(res-1)

	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			cube := d.Origin.
				Add(d.XAxis.Mul(float32(x) * step)).
				Add(d.YAxis.Mul(float32(y) * step))
			p := terrain.CubeToSphere(cube)
			h := g.Settings.Height(noise, p)
			vertices[y*res+x] = p.Mul(radius * (1 + g.Settings.Amplitude*h))
		}
	}

	t := 0
	for y := 0; y < res-1; y++ {
		for x := 0; x < res-1; x++ {
			i := uint32(y*res + x)
			r := uint32(res)

			triangles[t] = i
			triangles[t+1] = i + 1
			triangles[t+2] = i + r
			triangles[t+3] = i + 1
			triangles[t+4] = i + r + 1
			triangles[t+5] = i + r
			t += 6
		}
	}
}

func (g *Generator) noise(seed int32) opensimplex.Noise32 {
	g.noiseMutex.Lock()
	defer g.noiseMutex.Unlock()

	if g.noises == nil {
		g.noises = make(map[int32]opensimplex.Noise32)
	}

	n, ok := g.noises[seed]
	if !ok {
		n = opensimplex.New32(int64(seed))
		g.noises[seed] = n
	}
	return n
}
