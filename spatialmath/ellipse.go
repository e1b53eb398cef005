package spatialmath

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/rhplan/utils"
)

// ellipse is an axis aligned elliptical obstacle. A circle is an ellipse with equal radii, it is
// kept as its own kind so it round trips through config as a circle.
type ellipse struct {
	center r2.Point
	rx, ry float64
	kind   ObstacleKind
	label  string
}

// NewCircle instantiates a circular obstacle of the given radius.
func NewCircle(center r2.Point, radius float64, label string) (Obstacle, error) {
	if radius <= 0 || math.IsNaN(radius) {
		return nil, newBadObstacleDimensionsError(CircleType, "radius must be positive")
	}
	return &ellipse{center: center, rx: radius, ry: radius, kind: CircleType, label: label}, nil
}

// NewEllipse instantiates an axis aligned elliptical obstacle with the given semi-axes.
func NewEllipse(center r2.Point, rx, ry float64, label string) (Obstacle, error) {
	if rx <= 0 || ry <= 0 || math.IsNaN(rx) || math.IsNaN(ry) {
		return nil, newBadObstacleDimensionsError(EllipseType, "both radii must be positive")
	}
	return &ellipse{center: center, rx: rx, ry: ry, kind: EllipseType, label: label}, nil
}

// H returns max(0, 1 - ((x-cx)/rx)^2 - ((y-cy)/ry)^2).
func (e *ellipse) H(pt r2.Point) float64 {
	return utils.Ramp(1 - utils.Square((pt.X-e.center.X)/e.rx) - utils.Square((pt.Y-e.center.Y)/e.ry))
}

func (e *ellipse) Center() r2.Point {
	return e.center
}

func (e *ellipse) Kind() ObstacleKind {
	return e.kind
}

// Radii returns the semi-axes along x and y.
func (e *ellipse) Radii() (float64, float64) {
	return e.rx, e.ry
}

func (e *ellipse) Label() string {
	return e.label
}

func (e *ellipse) SetLabel(label string) {
	e.label = label
}

// String returns a human readable string that represents the ellipse.
func (e *ellipse) String() string {
	if e.kind == CircleType {
		return fmt.Sprintf("Type: Circle | Center: X:%.2f, Y:%.2f | Radius: %.2f", e.center.X, e.center.Y, e.rx)
	}
	return fmt.Sprintf("Type: Ellipse | Center: X:%.2f, Y:%.2f | Radii: X:%.2f, Y:%.2f", e.center.X, e.center.Y, e.rx, e.ry)
}

func (e *ellipse) MarshalJSON() ([]byte, error) {
	config, err := NewObstacleConfig(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}

// boundary returns n points evenly spaced in angle along the ellipse outline, starting on the +x axis.
func (e *ellipse) boundary(n int) []r2.Point {
	points := make([]r2.Point, 0, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		points = append(points, r2.Point{
			X: e.rx*math.Cos(angle) + e.center.X,
			Y: e.ry*math.Sin(angle) + e.center.Y,
		})
	}
	return points
}
