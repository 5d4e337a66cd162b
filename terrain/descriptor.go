package terrain

import "github.com/go-gl/mathgl/mgl32"

// ChunkDescriptor is the plain value describing a chunk footprint on the unit
// cube. It is what gets batched to the LOD evaluator and the mesh generator.
type ChunkDescriptor struct {
	Origin mgl32.Vec3 `json:"origin"`
	XAxis  mgl32.Vec3 `json:"x_axis"`
	YAxis  mgl32.Vec3 `json:"y_axis"`

	// The slot of the descriptor in the registry.
	Index int `json:"index"`

	IsLeaf           bool `json:"is_leaf"`
	CanMergeChildren bool `json:"can_merge_children"`
}

// Center returns the center of the footprint on the unit cube.
func (d ChunkDescriptor) Center() mgl32.Vec3 {
	return d.Origin.
		Add(d.XAxis.Mul(0.5)).
		Add(d.YAxis.Mul(0.5))
}

// WorldCenter returns the center of the footprint projected on a body.
func (d ChunkDescriptor) WorldCenter(bodyPosition mgl32.Vec3, bodyRadius float32) mgl32.Vec3 {
	return bodyPosition.Add(CubeToSphere(d.Center()).Mul(bodyRadius))
}

// Size returns the footprint size on a body of the given radius.
func (d ChunkDescriptor) Size(bodyRadius float32) float32 {
	return d.XAxis.Len() * bodyRadius
}

// SameFootprint reports whether both descriptors cover the same patch.
func (d ChunkDescriptor) SameFootprint(o ChunkDescriptor, epsilon float32) bool {
	return d.Origin.ApproxEqualThreshold(o.Origin, epsilon) &&
		d.XAxis.ApproxEqualThreshold(o.XAxis, epsilon) &&
		d.YAxis.ApproxEqualThreshold(o.YAxis, epsilon)
}

// Children returns the footprints of the 4 children of the descriptor, in
// split order.
func (d ChunkDescriptor) Children() [4]ChunkDescriptor {
	hx := d.XAxis.Mul(0.5)
	hy := d.YAxis.Mul(0.5)
	offsets := [4]mgl32.Vec3{
		{},
		hx,
		hy,
		hx.Add(hy),
	}

	var children [4]ChunkDescriptor
	for i, off := range offsets {
		children[i] = ChunkDescriptor{
			Origin: d.Origin.Add(off),
			XAxis:  hx,
			YAxis:  hy,
			IsLeaf: true,
		}
	}
	return children
}

// Face is a cube face, identified by its outward normal.
type Face struct {
	Name   string
	Normal mgl32.Vec3
}

// Faces are the 6 cube faces from which root chunks are built.
var Faces = [6]Face{
	{Name: "up", Normal: mgl32.Vec3{0, 1, 0}},
	{Name: "down", Normal: mgl32.Vec3{0, -1, 0}},
	{Name: "left", Normal: mgl32.Vec3{-1, 0, 0}},
	{Name: "right", Normal: mgl32.Vec3{1, 0, 0}},
	{Name: "forward", Normal: mgl32.Vec3{0, 0, 1}},
	{Name: "back", Normal: mgl32.Vec3{0, 0, -1}},
}

// RootDescriptor returns the descriptor covering a whole cube face.
func RootDescriptor(f Face) ChunkDescriptor {
	n := f.Normal
	x := mgl32.Vec3{n.Y(), n.Z(), n.X()}
	y := n.Cross(x)

	return ChunkDescriptor{
		Origin: n.Sub(x).Sub(y),
		XAxis:  x.Mul(2),
		YAxis:  y.Mul(2),
		IsLeaf: true,
	}
}
