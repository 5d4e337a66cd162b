package shader

import (
	"os"
	"path/filepath"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/jord/lod"
	"github.com/aukilabs/jord/mesh"
	"github.com/aukilabs/jord/terrain"
	"github.com/segmentio/encoding/json"
)

const ErrTypeBundleWriteFailed = "bundle_write_failed"

// Bundle is everything a GPU host needs to dispatch a kernel on a batch of
// chunks: the compiled module, its input buffers and the buffer sizes it
// writes to.
type Bundle struct {
	Kernel Kernel
	SPIRV  []uint32
	Params []byte
	Chunks []byte

	// The output bindings sizes in bytes, in binding order.
	Outputs []int

	Workgroup [3]uint32
	Dispatch  [3]uint32
}

// Manifest describes the files of a written bundle.
type Manifest struct {
	Kernel    Kernel    `json:"kernel"`
	Module    string    `json:"module"`
	Params    string    `json:"params"`
	Chunks    string    `json:"chunks"`
	NumChunks int       `json:"num_chunks"`
	Outputs   []int     `json:"outputs"`
	Workgroup [3]uint32 `json:"workgroup"`
	Dispatch  [3]uint32 `json:"dispatch"`
}

// NewLODBundle returns the bundle evaluating descs with the LOD kernel.
func NewLODBundle(spirv []uint32, s lod.Settings, req terrain.LODRequest, descs []terrain.ChunkDescriptor) Bundle {
	return Bundle{
		Kernel: LODKernel,
		SPIRV:  spirv,
		Params: PackLODParams(s, req, len(descs)),
		Chunks: PackDescriptors(descs),
		Outputs: []int{
			len(descs) * 4,
			4,
		},
		Workgroup: LODKernel.WorkgroupSize(),
		Dispatch:  DispatchLOD(len(descs)),
	}
}

// NewTerrainBundle returns the bundle generating the geometry of descs with
// the terrain kernel.
func NewTerrainBundle(spirv []uint32, s mesh.Settings, bodyRadius float32, bodySeed int32, descs []terrain.ChunkDescriptor) Bundle {
	return Bundle{
		Kernel: TerrainKernel,
		SPIRV:  spirv,
		Params: PackTerrainParams(s, bodyRadius, bodySeed, len(descs)),
		Chunks: PackDescriptors(descs),
		Outputs: []int{
			len(descs) * s.VertexCount() * VertexStride,
			len(descs) * s.IndexCount() * 4,
		},
		Workgroup: TerrainKernel.WorkgroupSize(),
		Dispatch:  DispatchTerrain(len(descs), s.Resolution),
	}
}

// Write writes the bundle files in dir and returns their manifest. Files are
// named after the kernel.
func (b Bundle) Write(dir string) (Manifest, error) {
	name := string(b.Kernel)
	m := Manifest{
		Kernel:    b.Kernel,
		Module:    name + ".spv",
		Params:    name + ".params.bin",
		Chunks:    name + ".chunks.bin",
		NumChunks: len(b.Chunks) / DescriptorSize,
		Outputs:   b.Outputs,
		Workgroup: b.Workgroup,
		Dispatch:  b.Dispatch,
	}

	module, err := os.Create(filepath.Join(dir, m.Module))
	if err != nil {
		return Manifest{}, bundleError(b.Kernel, m.Module, err)
	}
	defer module.Close()

	if err := WriteSPIRV(module, b.SPIRV); err != nil {
		return Manifest{}, bundleError(b.Kernel, m.Module, err)
	}

	if err := os.WriteFile(filepath.Join(dir, m.Params), b.Params, 0o644); err != nil {
		return Manifest{}, bundleError(b.Kernel, m.Params, err)
	}

	if err := os.WriteFile(filepath.Join(dir, m.Chunks), b.Chunks, 0o644); err != nil {
		return Manifest{}, bundleError(b.Kernel, m.Chunks, err)
	}

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, bundleError(b.Kernel, name+".json", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), manifest, 0o644); err != nil {
		return Manifest{}, bundleError(b.Kernel, name+".json", err)
	}
	return m, nil
}

func bundleError(k Kernel, filename string, err error) error {
	return errors.New("writing kernel bundle failed").
		WithType(ErrTypeBundleWriteFailed).
		WithTag("kernel", k).
		WithTag("file_name", filename).
		Wrap(err)
}
