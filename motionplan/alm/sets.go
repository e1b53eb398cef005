package alm

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Set is a closed convex set with a euclidean projection.
type Set interface {
	// Project replaces x with its projection onto the set.
	Project(x []float64)
	Contains(x []float64) bool
}

// Zero is the singleton {0}. Used as the target set of a constraint mapping it turns every
// residual into an equality constraint.
type Zero struct{}

// Project sets every entry of x to zero.
func (Zero) Project(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

// Contains reports whether x is exactly the origin.
func (Zero) Contains(x []float64) bool {
	for _, v := range x {
		if v != 0 {
			return false
		}
	}
	return true
}

// Ball2 is the closed euclidean ball of the given radius. A nil Center is the origin.
type Ball2 struct {
	Center []float64
	Radius float64
}

// NewBall2 returns a ball centred at the origin.
func NewBall2(radius float64) *Ball2 {
	return &Ball2{Radius: radius}
}

func (b *Ball2) offset(x []float64) []float64 {
	d := make([]float64, len(x))
	copy(d, x)
	if b.Center != nil {
		floats.Sub(d, b.Center)
	}
	return d
}

// Project moves x onto the boundary of the ball when it lies outside.
func (b *Ball2) Project(x []float64) {
	d := b.offset(x)
	norm := floats.Norm(d, 2)
	if norm <= b.Radius {
		return
	}
	floats.Scale(b.Radius/norm, d)
	if b.Center != nil {
		floats.AddTo(x, b.Center, d)
		return
	}
	copy(x, d)
}

// Contains reports whether x lies within the ball.
func (b *Ball2) Contains(x []float64) bool {
	return floats.Norm(b.offset(x), 2) <= b.Radius
}

// Unbounded is the whole space. Projection leaves x untouched.
type Unbounded struct{}

// Project is a no-op.
func (Unbounded) Project([]float64) {}

// Contains reports whether every entry of x is a real number.
func (Unbounded) Contains(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Constraints groups the sets of a constrained problem: U bounds the decision variable, the
// constraint mapping must land in C and the Lagrange multipliers are kept within Y.
type Constraints struct {
	U Set
	C Set
	Y Set
}

func (c Constraints) withDefaults() Constraints {
	if c.U == nil {
		c.U = Unbounded{}
	}
	if c.C == nil {
		c.C = Zero{}
	}
	if c.Y == nil {
		c.Y = Unbounded{}
	}
	return c
}
