package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CubeToSphere maps a point on the surface of the unit cube to the unit
// sphere. The mapping spreads area evenly across each face, which keeps chunks
// of the same depth close in size.
func CubeToSphere(p mgl32.Vec3) mgl32.Vec3 {
	x2 := p.X() * p.X()
	y2 := p.Y() * p.Y()
	z2 := p.Z() * p.Z()

	s := mgl32.Vec3{
		p.X() * sqrt(1-y2/2-z2/2+y2*z2/3),
		p.Y() * sqrt(1-z2/2-x2/2+z2*x2/3),
		p.Z() * sqrt(1-x2/2-y2/2+x2*y2/3),
	}

	if s.Len() == 0 {
		return s
	}
	return s.Normalize()
}

func sqrt(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(v)))
}
