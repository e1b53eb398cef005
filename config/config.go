// Package config reads planning scenarios from JSON files.
package config

import (
	"github.com/golang/geo/r2"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rhplan/logging"
	"go.viam.com/rhplan/motionplan"
	"go.viam.com/rhplan/motionplan/alm"
	"go.viam.com/rhplan/motionplan/nloptsolver"
	"go.viam.com/rhplan/spatialmath"
)

// Backend names the solver a scenario's steps are handed to.
type Backend string

// The supported backends.
const (
	BackendALM   = Backend("alm")
	BackendNLopt = Backend("nlopt")
)

// Point is the JSON form of a position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// R2 converts the point.
func (p Point) R2() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// NewPoint converts a position into its JSON form.
func NewPoint(p r2.Point) Point {
	return Point{X: p.X, Y: p.Y}
}

// Config describes one planning scenario and how to solve it.
type Config struct {
	Name       string                        `json:"name,omitempty"`
	Start      Point                         `json:"start"`
	Goal       Point                         `json:"goal"`
	Obstacles  []*spatialmath.ObstacleConfig `json:"obstacles,omitempty"`
	Planner    *motionplan.PlannerOptions    `json:"planner,omitempty"`
	Backend    Backend                       `json:"backend,omitempty"`
	Solver     *alm.Options                  `json:"solver,omitempty"`
	NLopt      *nloptsolver.Options          `json:"nlopt,omitempty"`
	SearchArea *spatialmath.SearchArea       `json:"search_area,omitempty"`

	ConfigFilePath string `json:"-"`
}

// NewConfig returns an empty scenario carrying every default.
func NewConfig() *Config {
	area := spatialmath.DefaultSearchArea()
	return &Config{
		Planner:    motionplan.NewBasicPlannerOptions(),
		Backend:    BackendALM,
		Solver:     alm.NewDefaultOptions(),
		NLopt:      nloptsolver.NewDefaultOptions(),
		SearchArea: &area,
	}
}

// Validate returns every problem with the scenario at once.
func (c *Config) Validate() error {
	var err error
	if !spatialmath.PositionIsFinite(c.Start.R2()) {
		err = multierr.Append(err, errors.Errorf("start %v is not finite", c.Start))
	}
	if !spatialmath.PositionIsFinite(c.Goal.R2()) {
		err = multierr.Append(err, errors.Errorf("goal %v is not finite", c.Goal))
	}
	if _, obsErr := spatialmath.ObstaclesFromConfigs(c.Obstacles); obsErr != nil {
		err = multierr.Append(err, obsErr)
	}
	if c.Planner != nil {
		err = multierr.Append(err, errors.Wrap(c.Planner.Validate(), "planner"))
	}
	switch c.Backend {
	case BackendALM, "":
		if c.Solver != nil {
			err = multierr.Append(err, errors.Wrap(c.Solver.Validate(), "solver"))
		}
	case BackendNLopt:
		if c.NLopt != nil {
			err = multierr.Append(err, errors.Wrap(c.NLopt.Validate(), "nlopt"))
		}
	default:
		err = multierr.Append(err, errors.Errorf("unknown backend %q", c.Backend))
	}
	if c.SearchArea != nil {
		err = multierr.Append(err, errors.Wrap(c.SearchArea.Validate(), "search_area"))
	}
	return err
}

// ParseObstacles builds the scenario's obstacles.
func (c *Config) ParseObstacles() ([]spatialmath.Obstacle, error) {
	return spatialmath.ObstaclesFromConfigs(c.Obstacles)
}

// NewStepSolver builds the step solver of the configured backend.
func (c *Config) NewStepSolver(logger logging.Logger) (*motionplan.StepSolver, error) {
	var (
		solver motionplan.Solver
		err    error
	)
	switch c.Backend {
	case BackendALM, "":
		solver, err = alm.NewSolver(c.Solver, logger.Sublogger("alm"))
	case BackendNLopt:
		solver, err = nloptsolver.NewSolver(c.NLopt, logger.Sublogger("nlopt"))
	default:
		err = errors.Errorf("unknown backend %q", c.Backend)
	}
	if err != nil {
		return nil, err
	}
	return motionplan.NewStepSolver(solver, logger), nil
}

// Scenario converts the config into a planning request.
func (c *Config) Scenario() (motionplan.Scenario, error) {
	obstacles, err := c.ParseObstacles()
	if err != nil {
		return motionplan.Scenario{}, err
	}
	return motionplan.Scenario{
		Name:      c.Name,
		Start:     c.Start.R2(),
		Goal:      c.Goal.R2(),
		Obstacles: obstacles,
		Options:   c.Planner,
	}, nil
}

// Schema returns the JSON schema of scenario files.
func Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}
