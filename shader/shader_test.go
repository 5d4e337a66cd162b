package shader

import (
	"bytes"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestKernelSource(t *testing.T) {
	tests := []struct {
		kernel   Kernel
		required []string
	}{
		{
			kernel: LODKernel,
			required: []string{
				"@compute",
				"@workgroup_size(64)",
				"struct Chunk",
				"atomicAdd",
				"falloff_power",
			},
		},
		{
			kernel: TerrainKernel,
			required: []string{
				"@compute",
				"@workgroup_size(8, 8, 1)",
				"struct Chunk",
				"terrain_amplitude",
				"triangles",
			},
		},
	}

	for _, test := range tests {
		t.Run(string(test.kernel), func(t *testing.T) {
			src := test.kernel.Source()
			for _, r := range test.required {
				require.Contains(t, src, r)
			}
		})
	}

	require.Empty(t, Kernel("unknown").Source())
}

func TestCompile(t *testing.T) {
	for _, k := range Kernels {
		t.Run(string(k), func(t *testing.T) {
			words, err := Compile(k)
			if err != nil {
				// naga does not cover all of WGSL yet.
				require.True(t, errors.IsType(err, ErrTypeCompileFailed))
				t.Skipf("skipping on compiler limitation: %v", err)
			}

			require.NotEmpty(t, words)
			require.Equal(t, uint32(0x07230203), words[0])
		})
	}

	t.Run("unknown kernel", func(t *testing.T) {
		_, err := Compile("unknown")
		require.Error(t, err)
	})
}

func TestDispatch(t *testing.T) {
	require.Equal(t, [3]uint32{1, 1, 1}, DispatchLOD(6))
	require.Equal(t, [3]uint32{2, 1, 1}, DispatchLOD(65))
	require.Equal(t, [3]uint32{1, 1, 3}, DispatchTerrain(3, 8))
	require.Equal(t, [3]uint32{2, 2, 5}, DispatchTerrain(5, 9))
	require.Equal(t, [3]uint32{64, 1, 1}, LODKernel.WorkgroupSize())
}

func TestWriteSPIRV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSPIRV(&buf, []uint32{0x07230203, 1}))
	require.Equal(t, []byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0}, buf.Bytes())
}
