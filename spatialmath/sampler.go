package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/rhplan/utils"
)

// DefaultBoundarySamples is the number of outline points drawn for circles and ellipses, one
// every ten degrees.
const DefaultBoundarySamples = 36

// SearchArea is the rectangle and grid resolution used to enumerate obstacle interiors.
type SearchArea struct {
	XMin       float64 `json:"x_min"`
	XMax       float64 `json:"x_max"`
	YMin       float64 `json:"y_min"`
	YMax       float64 `json:"y_max"`
	Resolution float64 `json:"resolution"`
}

// DefaultSearchArea returns the 20x20 square centred on the origin with a 0.05 grid.
func DefaultSearchArea() SearchArea {
	return SearchArea{XMin: -10, XMax: 10, YMin: -10, YMax: 10, Resolution: 0.05}
}

// MaxGridPoints bounds the number of grid points a search area may enumerate.
const MaxGridPoints = 1 << 24

// Validate ensures the area is finite, non-empty, has a positive resolution and a grid of at most
// MaxGridPoints points.
func (area SearchArea) Validate() error {
	if !utils.IsFinite(area.XMin, area.XMax, area.YMin, area.YMax) {
		return errors.Errorf("search area bounds must be finite, got x [%v, %v] y [%v, %v]",
			area.XMin, area.XMax, area.YMin, area.YMax)
	}
	if !(area.Resolution > 0) || !utils.IsFinite(area.Resolution) {
		return errors.Errorf("search area resolution must be positive and finite, got %v", area.Resolution)
	}
	if area.XMax < area.XMin || area.YMax < area.YMin {
		return errors.New("search area bounds are inverted")
	}
	nx := math.Floor((area.XMax-area.XMin)/area.Resolution) + 1
	ny := math.Floor((area.YMax-area.YMin)/area.Resolution) + 1
	if nx*ny > MaxGridPoints {
		return errors.Errorf("search area grid has %.0f points, more than %d", nx*ny, MaxGridPoints)
	}
	return nil
}

// gridSize returns the number of grid columns and rows of a valid area.
func (area SearchArea) gridSize() (int, int) {
	nx := int(math.Floor((area.XMax-area.XMin)/area.Resolution)) + 1
	ny := int(math.Floor((area.YMax-area.YMin)/area.Resolution)) + 1
	return nx, ny
}

// BoundaryPoints returns n points along the outline of a circle or ellipse. Other shapes have no
// closed form outline and must be sampled with SampleInterior.
func BoundaryPoints(o Obstacle, n int) ([]r2.Point, error) {
	if dbg, ok := o.(*debugObstacle); ok {
		o = dbg.Obstacle
	}
	e, ok := o.(*ellipse)
	if !ok {
		return nil, errors.Errorf("no closed form boundary for %s obstacles", o.Kind())
	}
	if n <= 0 {
		return nil, errors.New("number of boundary samples must be positive")
	}
	return e.boundary(n), nil
}

// SampleInterior enumerates the grid of the search area and returns every point strictly inside
// the obstacle, column by column.
func SampleInterior(o Obstacle, area SearchArea) ([]r2.Point, error) {
	if err := area.Validate(); err != nil {
		return nil, err
	}
	nx, ny := area.gridSize()

	var points []r2.Point
	for i := 0; i < nx; i++ {
		x := area.XMin + float64(i)*area.Resolution
		for j := 0; j < ny; j++ {
			pt := r2.Point{X: x, Y: area.YMin + float64(j)*area.Resolution}
			if o.H(pt) > 0 {
				points = append(points, pt)
			}
		}
	}
	return points, nil
}

// SampleObstacle returns outline points for circles and ellipses and interior grid points for
// every other shape.
func SampleObstacle(o Obstacle, area SearchArea) ([]r2.Point, error) {
	switch o.Kind() {
	case CircleType, EllipseType:
		return BoundaryPoints(o, DefaultBoundarySamples)
	case UnknownType, PolyhedronType, Nonlinear1Type, Nonlinear2Type:
	}
	return SampleInterior(o, area)
}
