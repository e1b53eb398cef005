package alm

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// default values for solver options.
const (
	// Exit once the multiplier update is at most penalty times this.
	defaultDeltaTolerance = 1e-5

	defaultMaxOuterIterations = 200

	// Smallest tolerance the inner problem is ever solved to.
	defaultEpsilonTolerance = 1e-6

	defaultInitialInnerTolerance      = 1e-2
	defaultInnerToleranceUpdateFactor = 0.5

	defaultInitialPenalty      = 100.
	defaultPenaltyUpdateFactor = 1.05

	// The penalty only grows when the multiplier update fails to shrink by this factor.
	defaultSufficientDecreaseCoefficient = 0.2

	defaultInitialLagrangeMultiplier = 5.

	defaultMaxInnerIterations = 500
	defaultLBFGSMemory        = 5
)

// Options are the tuning constants of the augmented Lagrangian solver. They are constructed once
// and threaded through every solve.
type Options struct {
	DeltaTolerance                float64 `json:"delta_tolerance"`
	MaxOuterIterations            int     `json:"max_outer_iterations"`
	EpsilonTolerance              float64 `json:"epsilon_tolerance"`
	InitialInnerTolerance         float64 `json:"initial_inner_tolerance"`
	InnerToleranceUpdateFactor    float64 `json:"inner_tolerance_update_factor"`
	InitialPenalty                float64 `json:"initial_penalty"`
	PenaltyUpdateFactor           float64 `json:"penalty_update_factor"`
	SufficientDecreaseCoefficient float64 `json:"sufficient_decrease_coefficient"`
	// Every multiplier starts at this value.
	InitialLagrangeMultiplier float64 `json:"initial_lagrange_multiplier"`

	// Major iteration limit of each inner solve. Zero means unlimited.
	MaxInnerIterations int `json:"max_inner_iterations"`
	LBFGSMemory        int `json:"lbfgs_memory"`

	// Wall clock budget of a whole solve, checked between outer iterations. Zero means unlimited.
	MaxDuration time.Duration `json:"max_duration"`
}

// NewDefaultOptions returns the options used by the step solver.
func NewDefaultOptions() *Options {
	return &Options{
		DeltaTolerance:                defaultDeltaTolerance,
		MaxOuterIterations:            defaultMaxOuterIterations,
		EpsilonTolerance:              defaultEpsilonTolerance,
		InitialInnerTolerance:         defaultInitialInnerTolerance,
		InnerToleranceUpdateFactor:    defaultInnerToleranceUpdateFactor,
		InitialPenalty:                defaultInitialPenalty,
		PenaltyUpdateFactor:           defaultPenaltyUpdateFactor,
		SufficientDecreaseCoefficient: defaultSufficientDecreaseCoefficient,
		InitialLagrangeMultiplier:     defaultInitialLagrangeMultiplier,
		MaxInnerIterations:            defaultMaxInnerIterations,
		LBFGSMemory:                   defaultLBFGSMemory,
	}
}

// Validate returns every invalid field at once.
func (o *Options) Validate() error {
	if o == nil {
		return errors.New("solver options are nil")
	}
	var err error
	positive := func(name string, v float64) {
		if !(v > 0) {
			err = multierr.Append(err, errors.Errorf("%s must be positive, got %v", name, v))
		}
	}
	positive("delta_tolerance", o.DeltaTolerance)
	positive("epsilon_tolerance", o.EpsilonTolerance)
	positive("initial_inner_tolerance", o.InitialInnerTolerance)
	positive("initial_penalty", o.InitialPenalty)

	if o.MaxOuterIterations < 1 {
		err = multierr.Append(err, errors.Errorf("max_outer_iterations must be at least 1, got %d", o.MaxOuterIterations))
	}
	if o.InitialInnerTolerance < o.EpsilonTolerance {
		err = multierr.Append(err, errors.New("initial_inner_tolerance must not be smaller than epsilon_tolerance"))
	}
	if !(o.InnerToleranceUpdateFactor > 0 && o.InnerToleranceUpdateFactor < 1) {
		err = multierr.Append(err, errors.Errorf("inner_tolerance_update_factor must be in (0, 1), got %v", o.InnerToleranceUpdateFactor))
	}
	if !(o.PenaltyUpdateFactor >= 1) {
		err = multierr.Append(err, errors.Errorf("penalty_update_factor must be at least 1, got %v", o.PenaltyUpdateFactor))
	}
	if !(o.SufficientDecreaseCoefficient > 0 && o.SufficientDecreaseCoefficient < 1) {
		err = multierr.Append(err,
			errors.Errorf("sufficient_decrease_coefficient must be in (0, 1), got %v", o.SufficientDecreaseCoefficient))
	}
	if o.MaxInnerIterations < 0 {
		err = multierr.Append(err, errors.New("max_inner_iterations must not be negative"))
	}
	if o.LBFGSMemory < 1 {
		err = multierr.Append(err, errors.Errorf("lbfgs_memory must be at least 1, got %d", o.LBFGSMemory))
	}
	if o.MaxDuration < 0 {
		err = multierr.Append(err, errors.New("max_duration must not be negative"))
	}
	return err
}
