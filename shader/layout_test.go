package shader

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/aukilabs/jord/lod"
	"github.com/aukilabs/jord/mesh"
	"github.com/aukilabs/jord/terrain"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestPackDescriptors(t *testing.T) {
	descs := []terrain.ChunkDescriptor{
		{
			Origin: mgl32.Vec3{1, 2, 3},
			XAxis:  mgl32.Vec3{4, 5, 6},
			YAxis:  mgl32.Vec3{7, 8, 9},
			Index:  0,
			IsLeaf: true,
		},
		{
			Origin:           mgl32.Vec3{-1, 1, -1},
			XAxis:            mgl32.Vec3{0.5, 0, 0},
			YAxis:            mgl32.Vec3{0, 0, -0.5},
			Index:            1,
			CanMergeChildren: true,
		},
	}

	b := PackDescriptors(descs)
	require.Len(t, b, 2*DescriptorSize)

	t.Run("layout", func(t *testing.T) {
		require.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(b[0:])))
		require.Equal(t, float32(4), math.Float32frombits(binary.LittleEndian.Uint32(b[16:])))
		require.Equal(t, float32(9), math.Float32frombits(binary.LittleEndian.Uint32(b[40:])))
		require.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[28:]))
		require.Equal(t, uint32(0), binary.LittleEndian.Uint32(b[44:]))

		second := b[DescriptorSize:]
		require.Equal(t, uint32(1), binary.LittleEndian.Uint32(second[12:]))
		require.Equal(t, uint32(0), binary.LittleEndian.Uint32(second[28:]))
		require.Equal(t, uint32(1), binary.LittleEndian.Uint32(second[44:]))
	})

	t.Run("negative axes", func(t *testing.T) {
		second := b[DescriptorSize:]
		require.Equal(t, float32(-1), float32At(second, 0))
		require.Equal(t, float32(-0.5), float32At(second, 40))
	})
}

func float32At(b []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
}

func TestPackLODParams(t *testing.T) {
	b := PackLODParams(lod.DefaultSettings(), terrain.LODRequest{
		Camera:     mgl32.Vec3{1, 2, 3},
		BodyRadius: 500,
		Mode:       terrain.SplitMode,
	}, 6)

	require.Len(t, b, LODParamsSize)
	require.Equal(t, float32(500), math.Float32frombits(binary.LittleEndian.Uint32(b[12:])))
	require.Equal(t, float32(0.4), math.Float32frombits(binary.LittleEndian.Uint32(b[28:])))
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[48:]))
	require.Equal(t, uint32(6), binary.LittleEndian.Uint32(b[52:]))
}

func TestPackTerrainParams(t *testing.T) {
	b := PackTerrainParams(mesh.DefaultSettings(), 100, -3, 2)

	require.Len(t, b, TerrainParamsSize)
	require.Equal(t, float32(100), math.Float32frombits(binary.LittleEndian.Uint32(b[0:])))
	require.Equal(t, uint32(8), binary.LittleEndian.Uint32(b[8:]))
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[12:]))
	require.Equal(t, int32(-3), int32(binary.LittleEndian.Uint32(b[16:])))
	require.Equal(t, float32(0.45), math.Float32frombits(binary.LittleEndian.Uint32(b[32:])))
}
