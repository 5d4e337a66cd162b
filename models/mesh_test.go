package models

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

// A unit quad in the xz plane facing +y.
func quadMesh() *Mesh {
	m := &Mesh{}
	m.Set([]mgl32.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{0, 0, 1},
		{1, 0, 1},
	}, []uint32{0, 2, 1, 1, 2, 3})
	return m
}

func TestMeshRecalculateNormals(t *testing.T) {
	m := quadMesh()
	m.RecalculateNormals()

	require.Len(t, m.Normals, 4)
	for _, n := range m.Normals {
		require.True(t, n.ApproxEqual(mgl32.Vec3{0, 1, 0}))
	}

	t.Run("out of range indices are ignored", func(t *testing.T) {
		m := quadMesh()
		m.Triangles = append(m.Triangles, 0, 1, 9)
		m.RecalculateNormals()
		require.True(t, m.Normals[0].ApproxEqual(mgl32.Vec3{0, 1, 0}))
	})
}

func TestMeshRecalculateBounds(t *testing.T) {
	m := quadMesh()
	m.RecalculateBounds()

	require.Equal(t, mgl32.Vec3{0, 0, 0}, m.Bounds.Min)
	require.Equal(t, mgl32.Vec3{1, 0, 1}, m.Bounds.Max)
	require.Equal(t, mgl32.Vec3{0.5, 0, 0.5}, m.Bounds.Center())
	require.Equal(t, mgl32.Vec3{0.5, 0, 0.5}, m.Bounds.Extents())
	require.True(t, m.Bounds.Contains(mgl32.Vec3{0.5, 0, 0.5}))
	require.False(t, m.Bounds.Contains(mgl32.Vec3{2, 0, 0}))
}

func TestMeshClear(t *testing.T) {
	m := quadMesh()
	m.RecalculateNormals()
	m.RecalculateBounds()

	m.Clear()
	require.True(t, m.Empty())
	require.Empty(t, m.Triangles)
	require.Empty(t, m.Normals)
	require.Equal(t, AABB{}, m.Bounds)

	m.RecalculateBounds()
	require.Equal(t, AABB{}, m.Bounds)
}

func TestAABBIntersects(t *testing.T) {
	a := AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}}
	b := AABB{Min: mgl32.Vec3{0.5, 0.5, 0.5}, Max: mgl32.Vec3{2, 2, 2}}
	c := AABB{Min: mgl32.Vec3{3, 3, 3}, Max: mgl32.Vec3{4, 4, 4}}

	require.True(t, a.Intersects(b))
	require.False(t, a.Intersects(c))
}
