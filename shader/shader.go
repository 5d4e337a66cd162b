// Package shader holds the WGSL compute kernels of the LOD evaluator and the
// mesh generator, and packs their inputs in the layouts they expect.
package shader

import (
	_ "embed"
	"encoding/binary"
	"io"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/gogpu/naga"
)

const ErrTypeCompileFailed = "shader_compile_failed"

//go:embed kernels/lod.wgsl
var lodKernelWGSL string

//go:embed kernels/terrain.wgsl
var terrainKernelWGSL string

// Kernel identifies a compute kernel.
type Kernel string

const (
	LODKernel     Kernel = "lod"
	TerrainKernel Kernel = "terrain"
)

// Kernels lists every kernel.
var Kernels = []Kernel{LODKernel, TerrainKernel}

// Source returns the WGSL source of the kernel.
func (k Kernel) Source() string {
	switch k {
	case LODKernel:
		return lodKernelWGSL
	case TerrainKernel:
		return terrainKernelWGSL
	default:
		return ""
	}
}

// WorkgroupSize returns the workgroup dimensions declared by the kernel.
func (k Kernel) WorkgroupSize() [3]uint32 {
	switch k {
	case LODKernel:
		return [3]uint32{64, 1, 1}
	case TerrainKernel:
		return [3]uint32{8, 8, 1}
	default:
		return [3]uint32{1, 1, 1}
	}
}

// Compile compiles the kernel to SPIR-V words.
func Compile(k Kernel) ([]uint32, error) {
	src := k.Source()
	if src == "" {
		return nil, errors.New("unknown kernel").
			WithType(ErrTypeCompileFailed).
			WithTag("kernel", k)
	}

	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, errors.New("compiling kernel failed").
			WithType(ErrTypeCompileFailed).
			WithTag("kernel", k).
			Wrap(err)
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return words, nil
}

// WriteSPIRV writes SPIR-V words as a little-endian binary module.
func WriteSPIRV(w io.Writer, words []uint32) error {
	return binary.Write(w, binary.LittleEndian, words)
}

// DispatchLOD returns the number of workgroups to evaluate n chunks.
func DispatchLOD(n int) [3]uint32 {
	return [3]uint32{uint32((n + 63) / 64), 1, 1}
}

// DispatchTerrain returns the number of workgroups to generate n chunks of
// the given resolution.
func DispatchTerrain(n, resolution int) [3]uint32 {
	groups := uint32((resolution + 7) / 8)
	return [3]uint32{groups, groups, uint32(n)}
}
