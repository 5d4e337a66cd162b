package shader

import (
	"encoding/binary"
	"math"

	"github.com/aukilabs/jord/lod"
	"github.com/aukilabs/jord/mesh"
	"github.com/aukilabs/jord/terrain"
	"github.com/go-gl/mathgl/mgl32"
)

// DescriptorSize is the std430 size of a chunk descriptor.
const DescriptorSize = 48

// ParamsSize is the size of the uniform parameters of both kernels.
const (
	LODParamsSize     = 64
	TerrainParamsSize = 48
)

// VertexStride is the size of a vertex in the terrain kernel output. Points
// are written as vec4 with w unused.
const VertexStride = 16

// PackDescriptors packs descriptors in the layout of the Chunk struct of the
// kernels.
func PackDescriptors(descs []terrain.ChunkDescriptor) []byte {
	b := make([]byte, len(descs)*DescriptorSize)
	for i, d := range descs {
		w := b[i*DescriptorSize:]
		putVec3(w[0:], d.Origin)
		binary.LittleEndian.PutUint32(w[12:], uint32(int32(d.Index)))
		putVec3(w[16:], d.XAxis)
		putBool(w[28:], d.IsLeaf)
		putVec3(w[32:], d.YAxis)
		putBool(w[44:], d.CanMergeChildren)
	}
	return b
}

// PackLODParams packs the uniform parameters of the LOD kernel.
func PackLODParams(s lod.Settings, req terrain.LODRequest, numChunks int) []byte {
	b := make([]byte, LODParamsSize)
	putVec3(b[0:], req.Camera)
	putFloat(b[12:], req.BodyRadius)
	putVec3(b[16:], req.BodyPosition)
	putFloat(b[28:], s.LODThreshold)
	putFloat(b[32:], s.MaxChunkSize)
	putFloat(b[36:], s.MaxDetailDistance)
	putFloat(b[40:], s.FalloffPower)
	putFloat(b[44:], s.FalloffDistance)
	binary.LittleEndian.PutUint32(b[48:], uint32(req.Mode))
	binary.LittleEndian.PutUint32(b[52:], uint32(numChunks))
	return b
}

// PackTerrainParams packs the uniform parameters of the terrain kernel.
func PackTerrainParams(s mesh.Settings, bodyRadius float32, bodySeed int32, numChunks int) []byte {
	b := make([]byte, TerrainParamsSize)
	putFloat(b[0:], bodyRadius)
	putFloat(b[4:], s.Amplitude)
	binary.LittleEndian.PutUint32(b[8:], uint32(s.Resolution))
	binary.LittleEndian.PutUint32(b[12:], uint32(numChunks))
	binary.LittleEndian.PutUint32(b[16:], uint32(bodySeed))
	binary.LittleEndian.PutUint32(b[20:], uint32(s.Octaves))
	putFloat(b[24:], s.Frequency)
	putFloat(b[28:], s.Lacunarity)
	putFloat(b[32:], s.Gain)
	return b
}

func putFloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func putVec3(b []byte, v mgl32.Vec3) {
	putFloat(b[0:], v.X())
	putFloat(b[4:], v.Y())
	putFloat(b[8:], v.Z())
}

func putBool(b []byte, v bool) {
	var u uint32
	if v {
		u = 1
	}
	binary.LittleEndian.PutUint32(b, u)
}
