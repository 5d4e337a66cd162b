package models

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// FlybyCamera orbits a body in its equatorial plane while its altitude
// oscillates between a minimum and a maximum.
type FlybyCamera struct {
	Center      mgl32.Vec3
	MinAltitude float32
	MaxAltitude float32

	// The time it takes to complete one orbit.
	OrbitPeriod time.Duration

	// The time it takes to dive from the max altitude to the min altitude and
	// back.
	DivePeriod time.Duration
}

// NewFlybyCamera returns a camera orbiting the given body between the surface
// offset by minAltitude and maxAltitude.
func NewFlybyCamera(body Body, minAltitude, maxAltitude float32, orbit, dive time.Duration) FlybyCamera {
	return FlybyCamera{
		Center:      body.Transform.Position,
		MinAltitude: body.Radius + minAltitude,
		MaxAltitude: body.Radius + maxAltitude,
		OrbitPeriod: orbit,
		DivePeriod:  dive,
	}
}

// Position returns the camera position after the given elapsed time.
func (c FlybyCamera) Position(elapsed time.Duration) mgl32.Vec3 {
	angle := phase(elapsed, c.OrbitPeriod) * 2 * math.Pi

	// Starts at max altitude.
	dive := (1 + math.Cos(phase(elapsed, c.DivePeriod)*2*math.Pi)) / 2
	distance := c.MinAltitude + (c.MaxAltitude-c.MinAltitude)*float32(dive)

	return c.Center.Add(mgl32.Vec3{
		float32(math.Cos(angle)) * distance,
		0,
		float32(math.Sin(angle)) * distance,
	})
}

func phase(elapsed, period time.Duration) float64 {
	if period <= 0 {
		return 0
	}
	return float64(elapsed%period) / float64(period)
}
