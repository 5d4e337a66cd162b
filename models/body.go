package models

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Transform is the world placement of a body. Chunk objects are parented to
// it, so mesh vertices are expressed in body-local space.
type Transform struct {
	Position mgl32.Vec3
}

// Body represents a celestial body whose surface is rendered as terrain.
// Radius and Seed are set once at creation and never change.
type Body struct {
	ID        string
	Radius    float32
	Seed      int32
	Transform Transform
}

func NewBody(radius float32, seed int32, position mgl32.Vec3) Body {
	return Body{
		ID:        uuid.New().String(),
		Radius:    radius,
		Seed:      seed,
		Transform: Transform{Position: position},
	}
}

// NewRandomBody creates a body with a random seed and a radius drawn from
// [minRadius, maxRadius].
func NewRandomBody(rng *rand.Rand, minRadius, maxRadius int, position mgl32.Vec3) Body {
	if maxRadius < minRadius {
		minRadius, maxRadius = maxRadius, minRadius
	}

	radius := minRadius
	if maxRadius > minRadius {
		radius += rng.Intn(maxRadius - minRadius + 1)
	}
	return NewBody(float32(radius), rng.Int31(), position)
}
