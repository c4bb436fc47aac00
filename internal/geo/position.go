package geo

import (
	"fmt"
	"math"
)

// Epsilon is the per-component tolerance used by Equal
const Epsilon = 1e-3

// Position is a point in the simulated world (x, y, altitude), all in the same
// length unit. Positions are values; every operation returns a new one.
type Position struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Alt float64 `json:"alt"`
}

// New creates a position
func New(x, y, alt float64) Position {
	return Position{X: x, Y: y, Alt: alt}
}

// Add returns p + o
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y, Alt: p.Alt + o.Alt}
}

// Sub returns p - o
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y, Alt: p.Alt - o.Alt}
}

// Scale returns p * k
func (p Position) Scale(k float64) Position {
	return Position{X: p.X * k, Y: p.Y * k, Alt: p.Alt * k}
}

// WithAlt returns a copy of p at the given altitude
func (p Position) WithAlt(alt float64) Position {
	p.Alt = alt
	return p
}

// Norm is the length of p seen as a vector
func (p Position) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Alt*p.Alt)
}

// Distance is the 3D Euclidean distance between p and o
func (p Position) Distance(o Position) float64 {
	return p.Sub(o).Norm()
}

// HorizontalDistance ignores altitude
func (p Position) HorizontalDistance(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Equal compares component-wise within Epsilon
func (p Position) Equal(o Position) bool {
	return math.Abs(p.X-o.X) < Epsilon &&
		math.Abs(p.Y-o.Y) < Epsilon &&
		math.Abs(p.Alt-o.Alt) < Epsilon
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, Alt:%d)", int(p.X), int(p.Y), int(p.Alt))
}
