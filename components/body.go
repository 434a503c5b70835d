package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Size is a cell's box extent along its local axes.
type Size struct {
	X, Y, Z float64
}

// Cube returns a size with equal edges.
func Cube(edge float64) Size {
	return Size{X: edge, Y: edge, Z: edge}
}

// Volume returns X*Y*Z.
func (s Size) Volume() float64 {
	return s.X * s.Y * s.Z
}

// HalfExtents returns half the edge lengths as a vector.
func (s Size) HalfExtents() r3.Vec {
	return r3.Vec{X: s.X / 2, Y: s.Y / 2, Z: s.Z / 2}
}

// Grow adds d to each axis, clamped to [0, max].
func (s *Size) Grow(dx, dy, dz, max float64) {
	s.X = clamp(s.X+dx, 0, max)
	s.Y = clamp(s.Y+dy, 0, max)
	s.Z = clamp(s.Z+dz, 0, max)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
