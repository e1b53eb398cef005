package spatialmath

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rhplan/logging"
)

// ObstacleKind is the shape of an obstacle.
type ObstacleKind string

// The set of supported obstacle shapes.
const (
	UnknownType    = ObstacleKind("")
	CircleType     = ObstacleKind("circle")
	EllipseType    = ObstacleKind("ellipse")
	PolyhedronType = ObstacleKind("polyhedron")
	Nonlinear1Type = ObstacleKind("nonlinear1")
	Nonlinear2Type = ObstacleKind("nonlinear2")
)

// Obstacle is a forbidden region of the plane described by an implicit function H. H is strictly
// positive inside the region and zero outside or on its boundary. H is continuous but not
// differentiable where the region's boundary is crossed.
type Obstacle interface {
	// H returns the inside-ness of the point.
	H(pt r2.Point) float64
	// Center returns the reference point the shape is defined around.
	Center() r2.Point
	Kind() ObstacleKind
	Label() string
	SetLabel(label string)
	fmt.Stringer
	json.Marshaler
}

// Inside reports whether pt lies strictly inside the obstacle.
func Inside(o Obstacle, pt r2.Point) bool {
	return o.H(pt) > 0
}

// TotalH returns the sum of H over every obstacle, zero when pt is outside all of them.
func TotalH(obstacles []Obstacle, pt r2.Point) float64 {
	return lo.SumBy(obstacles, func(o Obstacle) float64 { return o.H(pt) })
}

func newBadObstacleDimensionsError(kind ObstacleKind, reason string) error {
	return errors.Errorf("invalid dimensions for %s obstacle: %s", kind, reason)
}

func newObstacleTypeUnsupportedError(kind ObstacleKind) error {
	return errors.Errorf("obstacle type %q is unsupported", kind)
}

// debugObstacle logs every evaluation of the wrapped obstacle.
type debugObstacle struct {
	Obstacle
	logger logging.Logger
}

// WithDebugLogging wraps an obstacle so that every H evaluation is logged at debug level along
// with whether the point was inside.
func WithDebugLogging(o Obstacle, logger logging.Logger) Obstacle {
	return &debugObstacle{Obstacle: o, logger: logger}
}

func (d *debugObstacle) H(pt r2.Point) float64 {
	h := d.Obstacle.H(pt)
	d.logger.Debugw("obstacle evaluated", "obstacle", d.Obstacle.String(), "x", pt.X, "y", pt.Y, "h", h, "inside", h > 0)
	return h
}
