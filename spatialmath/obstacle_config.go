package spatialmath

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// HalfPlaneConfig is the JSON form of a HalfPlane.
type HalfPlaneConfig struct {
	Normal [2]float64 `json:"normal"`
	Offset float64    `json:"offset"`
}

// ObstacleConfig specifies the format of obstacles given through the configuration file.
type ObstacleConfig struct {
	Type ObstacleKind `json:"type,omitempty"`

	// Centre of the shape.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// Parameters for circles.
	R float64 `json:"r,omitempty"`

	// Parameters for ellipses.
	RX float64 `json:"rx,omitempty"`
	RY float64 `json:"ry,omitempty"`

	// Parameters for polyhedra.
	HalfPlanes []HalfPlaneConfig `json:"half_planes,omitempty"`

	Label string `json:"label,omitempty"`
}

// NewObstacleConfig returns the config equivalent of an obstacle.
func NewObstacleConfig(o Obstacle) (*ObstacleConfig, error) {
	if dbg, ok := o.(*debugObstacle); ok {
		o = dbg.Obstacle
	}
	center := o.Center()
	config := &ObstacleConfig{Type: o.Kind(), X: center.X, Y: center.Y, Label: o.Label()}
	switch shape := o.(type) {
	case *ellipse:
		if shape.kind == CircleType {
			config.R = shape.rx
		} else {
			config.RX, config.RY = shape.rx, shape.ry
		}
	case *polyhedron:
		for _, hp := range shape.halfPlanes {
			config.HalfPlanes = append(config.HalfPlanes, HalfPlaneConfig{
				Normal: [2]float64{hp.Normal.X, hp.Normal.Y},
				Offset: hp.Offset,
			})
		}
	case *nonlinearShape:
	default:
		return nil, newObstacleTypeUnsupportedError(o.Kind())
	}
	return config, nil
}

// ParseConfig converts an ObstacleConfig into the correct Obstacle type. If no type is given, it
// is inferred from the parameters that are set.
func (config *ObstacleConfig) ParseConfig() (Obstacle, error) {
	if config == nil {
		return nil, errors.New("obstacle config is nil")
	}
	center := r2.Point{X: config.X, Y: config.Y}
	if !PositionIsFinite(center) {
		return nil, errors.Errorf("obstacle %q has a non-finite centre", config.Label)
	}

	kind := config.Type
	if kind == UnknownType {
		switch {
		case config.R > 0:
			kind = CircleType
		case config.RX > 0 || config.RY > 0:
			kind = EllipseType
		case len(config.HalfPlanes) > 0:
			kind = PolyhedronType
		default:
			return nil, errors.Errorf("cannot infer type of obstacle %q", config.Label)
		}
	}

	switch kind {
	case CircleType:
		return NewCircle(center, config.R, config.Label)
	case EllipseType:
		return NewEllipse(center, config.RX, config.RY, config.Label)
	case PolyhedronType:
		halfPlanes := make([]HalfPlane, 0, len(config.HalfPlanes))
		for _, hp := range config.HalfPlanes {
			halfPlanes = append(halfPlanes, HalfPlane{Normal: r2.Point{X: hp.Normal[0], Y: hp.Normal[1]}, Offset: hp.Offset})
		}
		return NewPolyhedron(center, halfPlanes, config.Label)
	case Nonlinear1Type:
		return NewNonlinearShape1(center, config.Label), nil
	case Nonlinear2Type:
		return NewNonlinearShape2(center, config.Label), nil
	case UnknownType:
	}
	return nil, newObstacleTypeUnsupportedError(kind)
}

// ObstaclesFromConfigs parses every config, reporting all invalid entries at once.
func ObstaclesFromConfigs(configs []*ObstacleConfig) ([]Obstacle, error) {
	obstacles := make([]Obstacle, 0, len(configs))
	var errs error
	for i, cfg := range configs {
		o, err := cfg.ParseConfig()
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "obstacle %d", i))
			continue
		}
		obstacles = append(obstacles, o)
	}
	if errs != nil {
		return nil, errs
	}
	return obstacles, nil
}
