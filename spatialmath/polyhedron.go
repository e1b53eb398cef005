package spatialmath

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r2"

	"go.viam.com/rhplan/utils"
)

// HalfPlane is the constraint Normal·(x - centre) <= Offset of a polyhedron.
type HalfPlane struct {
	Normal r2.Point
	Offset float64
}

// polyhedron is a convex polygon given as an ordered list of half-planes relative to a centre.
type polyhedron struct {
	center     r2.Point
	halfPlanes []HalfPlane
	label      string
}

// NewPolyhedron instantiates a polyhedral obstacle. The half-planes are copied.
func NewPolyhedron(center r2.Point, halfPlanes []HalfPlane, label string) (Obstacle, error) {
	if len(halfPlanes) == 0 {
		return nil, newBadObstacleDimensionsError(PolyhedronType, "at least one half-plane is required")
	}
	for _, hp := range halfPlanes {
		if hp.Normal.Norm() == 0 || !utils.IsFinite(hp.Normal.X, hp.Normal.Y, hp.Offset) {
			return nil, newBadObstacleDimensionsError(PolyhedronType, "half-plane normals must be finite and non-zero")
		}
	}
	return &polyhedron{
		center:     center,
		halfPlanes: append([]HalfPlane(nil), halfPlanes...),
		label:      label,
	}, nil
}

// H returns the product over half-planes of max(0, b_i - a_i·(x - centre)). It is zero as soon as
// one half-plane is violated, so only points satisfying all of them register as inside.
func (p *polyhedron) H(pt r2.Point) float64 {
	rel := pt.Sub(p.center)
	h := 1.
	for _, hp := range p.halfPlanes {
		h *= utils.Ramp(hp.Offset - hp.Normal.Dot(rel))
	}
	return h
}

func (p *polyhedron) Center() r2.Point {
	return p.center
}

func (p *polyhedron) Kind() ObstacleKind {
	return PolyhedronType
}

// HalfPlanes returns a copy of the half-planes defining the polyhedron.
func (p *polyhedron) HalfPlanes() []HalfPlane {
	return append([]HalfPlane(nil), p.halfPlanes...)
}

func (p *polyhedron) Label() string {
	return p.label
}

func (p *polyhedron) SetLabel(label string) {
	p.label = label
}

func (p *polyhedron) String() string {
	return fmt.Sprintf("Type: Polyhedron | Center: X:%.2f, Y:%.2f | Half-planes: %d", p.center.X, p.center.Y, len(p.halfPlanes))
}

func (p *polyhedron) MarshalJSON() ([]byte, error) {
	config, err := NewObstacleConfig(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}
