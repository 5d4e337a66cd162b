package mesh

import (
	"context"
	"os"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/jord/models"
	"github.com/aukilabs/jord/terrain"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logs.SetLevel(logs.InfoLevel)
	os.Exit(m.Run())
}

func testChunks(n int) []terrain.ChunkDescriptor {
	chunks := make([]terrain.ChunkDescriptor, 0, n)
	for i := 0; i < n; i++ {
		d := terrain.RootDescriptor(terrain.Faces[i%len(terrain.Faces)])
		d.Index = i
		chunks = append(chunks, d)
	}
	return chunks
}

type generated struct {
	vertices  [][]mgl32.Vec3
	triangles [][]uint32
}

func collect(seq terrain.MeshSeq) generated {
	var g generated
	for v, t := range seq {
		g.vertices = append(g.vertices, v)
		g.triangles = append(g.triangles, t)
	}
	return g
}

func TestGeneratorGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("fixed sizes per chunk", func(t *testing.T) {
		g := NewGenerator(DefaultSettings())
		seq, err := g.Generate(ctx, testChunks(3), 100, 7)
		require.NoError(t, err)

		res := collect(seq)
		require.Len(t, res.vertices, 3)
		require.Len(t, res.triangles, 3)
		for i := range res.vertices {
			require.Len(t, res.vertices[i], 64)
			require.Len(t, res.triangles[i], 294)
		}
	})

	t.Run("keeps the submission order", func(t *testing.T) {
		chunks := testChunks(6)
		g := &Generator{Settings: DefaultSettings(), Workers: 3}
		seq, err := g.Generate(ctx, chunks, 100, 7)
		require.NoError(t, err)

		res := collect(seq)
		require.Len(t, res.vertices, 6)
		for i, d := range chunks {
			expected := terrain.CubeToSphere(d.Origin)
			require.True(t, res.vertices[i][0].Normalize().ApproxEqualThreshold(expected, 1e-4))
		}
	})

	t.Run("stays within the amplitude", func(t *testing.T) {
		s := DefaultSettings()
		s.Amplitude = 0.1
		seq, err := NewGenerator(s).Generate(ctx, testChunks(6), 100, 3)
		require.NoError(t, err)

		for vertices := range seq {
			for _, v := range vertices {
				require.GreaterOrEqual(t, v.Len(), float32(90-1e-3))
				require.LessOrEqual(t, v.Len(), float32(110+1e-3))
			}
		}
	})

	t.Run("indices are in range", func(t *testing.T) {
		seq, err := NewGenerator(DefaultSettings()).Generate(ctx, testChunks(1), 100, 3)
		require.NoError(t, err)

		for _, triangles := range seq {
			for _, i := range triangles {
				require.Less(t, i, uint32(64))
			}
		}
	})

	t.Run("is deterministic", func(t *testing.T) {
		g := NewGenerator(DefaultSettings())

		a, err := g.Generate(ctx, testChunks(2), 100, 11)
		require.NoError(t, err)
		b, err := NewGenerator(DefaultSettings()).Generate(ctx, testChunks(2), 100, 11)
		require.NoError(t, err)
		c, err := g.Generate(ctx, testChunks(2), 100, 12)
		require.NoError(t, err)

		ra := collect(a)
		require.Equal(t, ra, collect(b))
		require.NotEqual(t, ra.vertices, collect(c).vertices)
	})

	t.Run("flat terrain lies on the sphere", func(t *testing.T) {
		s := DefaultSettings()
		s.Amplitude = 0
		seq, err := NewGenerator(s).Generate(ctx, testChunks(2), 50, 1)
		require.NoError(t, err)

		for vertices := range seq {
			for _, v := range vertices {
				require.InDelta(t, 50, v.Len(), 1e-3)
			}
		}
	})

	t.Run("faces point outward", func(t *testing.T) {
		s := DefaultSettings()
		s.Amplitude = 0
		seq, err := NewGenerator(s).Generate(ctx, testChunks(6), 100, 1)
		require.NoError(t, err)

		for vertices, triangles := range seq {
			var mesh models.Mesh
			mesh.Set(vertices, triangles)
			mesh.RecalculateNormals()

			for i, n := range mesh.Normals {
				require.Greater(t, n.Dot(mesh.Vertices[i].Normalize()), float32(0.5))
			}
		}
	})

	t.Run("can only be consumed once", func(t *testing.T) {
		seq, err := NewGenerator(DefaultSettings()).Generate(ctx, testChunks(2), 100, 1)
		require.NoError(t, err)

		require.Len(t, collect(seq).vertices, 2)
		require.Empty(t, collect(seq).vertices)
	})

	t.Run("empty batch", func(t *testing.T) {
		seq, err := NewGenerator(DefaultSettings()).Generate(ctx, nil, 100, 1)
		require.NoError(t, err)
		require.Empty(t, collect(seq).vertices)
	})

	t.Run("invalid resolution", func(t *testing.T) {
		s := DefaultSettings()
		s.Resolution = 1

		_, err := NewGenerator(s).Generate(ctx, testChunks(1), 100, 1)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidSettings))
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := NewGenerator(DefaultSettings()).Generate(ctx, testChunks(1), 100, 1)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSettings(t *testing.T) {
	s := DefaultSettings()
	require.Equal(t, 64, s.VertexCount())
	require.Equal(t, 294, s.IndexCount())

	s.Octaves = 0
	require.Zero(t, s.Height(nil, mgl32.Vec3{1, 0, 0}))
}

func TestDecorators(t *testing.T) {
	ctx := context.Background()

	g := WithLogs(WithMetrics(NewGenerator(DefaultSettings()), t.Name()), t.Name())
	seq, err := g.Generate(ctx, testChunks(2), 100, 1)
	require.NoError(t, err)
	require.Len(t, collect(seq).vertices, 2)

	s := DefaultSettings()
	s.Resolution = 0
	g = WithLogs(WithMetrics(NewGenerator(s), t.Name()), t.Name())
	_, err = g.Generate(ctx, testChunks(2), 100, 1)
	require.True(t, errors.IsType(err, ErrTypeInvalidSettings))
}

func TestGeneratorWithManager(t *testing.T) {
	body := models.NewBody(100, 5, mgl32.Vec3{})
	evaluator := terrain.LODEvaluatorFunc(func(ctx context.Context, chunks []terrain.ChunkDescriptor, req terrain.LODRequest) ([]int, error) {
		return nil, nil
	})

	m, err := terrain.NewManager(body, models.NewObjectPool(t.Name(), 0), evaluator, NewGenerator(DefaultSettings()))
	require.NoError(t, err)
	require.NoError(t, m.Tick(context.Background(), mgl32.Vec3{}))

	for _, r := range m.Roots() {
		mesh := r.Object().Mesh
		require.Len(t, mesh.Vertices, 64)
		require.Len(t, mesh.Normals, 64)
		require.True(t, mesh.Bounds.Contains(mesh.Vertices[0]))
	}
}
