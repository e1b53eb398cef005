package spatialmath

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/rhplan/utils"
)

// nonlinearShape is one of the two fixed benchmark obstacles from Sathya et al. 2019, "Embedded
// nonlinear model predictive control for obstacle avoidance using PANOC". Only the centre is
// configurable.
type nonlinearShape struct {
	center r2.Point
	kind   ObstacleKind
	label  string
}

// NewNonlinearShape1 instantiates the parabolic band obstacle
//
//	h = max(0, dy - dx^2) * max(0, 1 + dx^2/2 - dy)
//
// where (dx, dy) is the offset from the centre.
func NewNonlinearShape1(center r2.Point, label string) Obstacle {
	return &nonlinearShape{center: center, kind: Nonlinear1Type, label: label}
}

// NewNonlinearShape2 instantiates the sinusoidal band obstacle
//
//	h = max(0, dy - 2 sin(-dx/2)) * max(0, 3 sin(dx/2 - 1) - dy) * max(0, dx - 1) * max(0, 8 - dx)
//
// where (dx, dy) is the offset from the centre.
func NewNonlinearShape2(center r2.Point, label string) Obstacle {
	return &nonlinearShape{center: center, kind: Nonlinear2Type, label: label}
}

func (n *nonlinearShape) H(pt r2.Point) float64 {
	dx := pt.X - n.center.X
	dy := pt.Y - n.center.Y
	if n.kind == Nonlinear1Type {
		h1 := utils.Ramp(dy - dx*dx)
		h2 := utils.Ramp(1 + dx*dx/2 - dy)
		return h1 * h2
	}
	h1 := utils.Ramp(dy - 2*math.Sin(-dx/2))
	h21 := utils.Ramp(3*math.Sin(dx/2-1) - dy)
	h22 := utils.Ramp(dx - 1)
	h23 := utils.Ramp(8 - dx)
	return h1 * h21 * h22 * h23
}

func (n *nonlinearShape) Center() r2.Point {
	return n.center
}

func (n *nonlinearShape) Kind() ObstacleKind {
	return n.kind
}

func (n *nonlinearShape) Label() string {
	return n.label
}

func (n *nonlinearShape) SetLabel(label string) {
	n.label = label
}

func (n *nonlinearShape) String() string {
	return fmt.Sprintf("Type: %s | Center: X:%.2f, Y:%.2f", n.kind, n.center.X, n.center.Y)
}

func (n *nonlinearShape) MarshalJSON() ([]byte, error) {
	config, err := NewObstacleConfig(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(config)
}
