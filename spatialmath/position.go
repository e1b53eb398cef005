// Package spatialmath defines 2D positions and the implicit obstacle shapes the planner avoids.
package spatialmath

import (
	"github.com/golang/geo/r2"

	"go.viam.com/rhplan/utils"
)

// PositionFromSlice converts a length 2 slice into a position.
func PositionFromSlice(v []float64) (r2.Point, error) {
	if err := utils.CheckDims("position", v, 2); err != nil {
		return r2.Point{}, err
	}
	return r2.Point{X: v[0], Y: v[1]}, nil
}

// PositionToSlice converts a position into a freshly allocated length 2 slice.
func PositionToSlice(p r2.Point) []float64 {
	return []float64{p.X, p.Y}
}

// Distance returns the euclidean distance between two positions.
func Distance(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

// PositionIsFinite reports whether both coordinates are finite.
func PositionIsFinite(p r2.Point) bool {
	return utils.IsFinite(p.X, p.Y)
}
