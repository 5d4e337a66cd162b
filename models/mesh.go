package models

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extents returns the half size of the box.
func (b AABB) Extents() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

func (b AABB) Contains(p mgl32.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

func (b AABB) Intersects(o AABB) bool {
	return (b.Min.X() <= o.Max.X() && b.Max.X() >= o.Min.X()) &&
		(b.Min.Y() <= o.Max.Y() && b.Max.Y() >= o.Min.Y()) &&
		(b.Min.Z() <= o.Max.Z() && b.Max.Z() >= o.Min.Z())
}

// Mesh is the geometry carried by a visual object. Triangles index into
// Vertices, three indices per triangle.
type Mesh struct {
	Vertices  []mgl32.Vec3
	Triangles []uint32
	Normals   []mgl32.Vec3
	Bounds    AABB
}

// Clear drops all geometry. Backing arrays are kept for reuse.
func (m *Mesh) Clear() {
	m.Vertices = m.Vertices[:0]
	m.Triangles = m.Triangles[:0]
	m.Normals = m.Normals[:0]
	m.Bounds = AABB{}
}

func (m *Mesh) Empty() bool {
	return len(m.Vertices) == 0
}

// Set copies the given geometry into the mesh. Normals and bounds are not
// updated.
func (m *Mesh) Set(vertices []mgl32.Vec3, triangles []uint32) {
	m.Vertices = append(m.Vertices[:0], vertices...)
	m.Triangles = append(m.Triangles[:0], triangles...)
}

// RecalculateNormals computes smooth per-vertex normals by accumulating the
// area-weighted normal of every triangle sharing a vertex.
func (m *Mesh) RecalculateNormals() {
	if cap(m.Normals) >= len(m.Vertices) {
		m.Normals = m.Normals[:len(m.Vertices)]
		clear(m.Normals)
	} else {
		m.Normals = make([]mgl32.Vec3, len(m.Vertices))
	}

	n := uint32(len(m.Vertices))
	for i := 0; i+2 < len(m.Triangles); i += 3 {
		a, b, c := m.Triangles[i], m.Triangles[i+1], m.Triangles[i+2]
		if a >= n || b >= n || c >= n {
			continue
		}

		va, vb, vc := m.Vertices[a], m.Vertices[b], m.Vertices[c]
		face := vb.Sub(va).Cross(vc.Sub(va))
		m.Normals[a] = m.Normals[a].Add(face)
		m.Normals[b] = m.Normals[b].Add(face)
		m.Normals[c] = m.Normals[c].Add(face)
	}

	for i, v := range m.Normals {
		if v.Len() != 0 {
			m.Normals[i] = v.Normalize()
		}
	}
}

// RecalculateBounds fits Bounds around the vertices.
func (m *Mesh) RecalculateBounds() {
	if len(m.Vertices) == 0 {
		m.Bounds = AABB{}
		return
	}

	inf := float32(math.Inf(1))
	min := mgl32.Vec3{inf, inf, inf}
	max := mgl32.Vec3{-inf, -inf, -inf}
	for _, v := range m.Vertices {
		for i := 0; i < 3; i++ {
			min[i] = float32(math.Min(float64(min[i]), float64(v[i])))
			max[i] = float32(math.Max(float64(max[i]), float64(v[i])))
		}
	}
	m.Bounds = AABB{Min: min, Max: max}
}
