package nloptsolver

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rhplan/motionplan/alm"
	"go.viam.com/rhplan/utils"
)

const (
	// Largest accepted entry of |F1 - Π_C(F1)| at the solution.
	defaultTolerance = 1e-5

	// Relative change in the cost or the decision variable below which nlopt stops.
	defaultRelativeTolerance = 1e-12

	// Budget of cost evaluations over all augmented Lagrangian subproblems.
	defaultMaxEvaluations = 20000
)

// Options configure the nlopt backed solver.
type Options struct {
	Tolerance         float64       `json:"tolerance"`
	RelativeTolerance float64       `json:"relative_tolerance"`
	MaxEvaluations    int           `json:"max_evaluations"`
	MaxDuration       time.Duration `json:"max_duration,omitempty"`
}

// NewDefaultOptions returns the default options.
func NewDefaultOptions() *Options {
	return &Options{
		Tolerance:         defaultTolerance,
		RelativeTolerance: defaultRelativeTolerance,
		MaxEvaluations:    defaultMaxEvaluations,
	}
}

// Validate returns every invalid option at once.
func (o *Options) Validate() error {
	if o == nil {
		return errors.New("nlopt options are nil")
	}
	var err error
	if !(o.Tolerance > 0) || !utils.IsFinite(o.Tolerance) {
		err = multierr.Append(err, errors.Errorf("tolerance must be positive, got %v", o.Tolerance))
	}
	if !(o.RelativeTolerance > 0) || !utils.IsFinite(o.RelativeTolerance) {
		err = multierr.Append(err, errors.Errorf("relative_tolerance must be positive, got %v", o.RelativeTolerance))
	}
	if o.MaxEvaluations < 1 {
		err = multierr.Append(err, errors.Errorf("max_evaluations must be at least 1, got %d", o.MaxEvaluations))
	}
	if o.MaxDuration < 0 {
		err = multierr.Append(err, errors.New("max_duration must not be negative"))
	}
	return err
}

// boxBounds converts the decision variable set into the per-coordinate bounds nlopt accepts. A
// ball becomes its bounding box. Nil bounds mean the variable is unbounded.
func boxBounds(set alm.Set, n int) (lower, upper []float64, err error) {
	switch s := set.(type) {
	case nil, alm.Unbounded:
		return nil, nil, nil
	case *alm.Ball2:
		if s.Center != nil {
			if err := utils.CheckDims("ball center", s.Center, n); err != nil {
				return nil, nil, err
			}
		}
		lower, upper = make([]float64, n), make([]float64, n)
		for i := range lower {
			var c float64
			if s.Center != nil {
				c = s.Center[i]
			}
			lower[i], upper[i] = c-s.Radius, c+s.Radius
		}
		return lower, upper, nil
	default:
		return nil, nil, errors.Errorf("nlopt cannot bound the decision variable by a %T", set)
	}
}

// checkTargetSet returns an error unless every residual is an equality constraint.
func checkTargetSet(set alm.Set) error {
	switch set.(type) {
	case nil, alm.Zero:
		return nil
	default:
		return errors.Errorf("nlopt only supports the zero target set, got %T", set)
	}
}
