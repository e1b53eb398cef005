//go:build !windows && !no_cgo

// Package nloptsolver solves step problems with nlopt's augmented Lagrangian method for equality
// constraints, using L-BFGS for the subproblems.
package nloptsolver

import (
	"context"
	"math"
	"time"

	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/rhplan/logging"
	"go.viam.com/rhplan/motionplan/alm"
	rutils "go.viam.com/rhplan/utils"
)

const maxTimeStatus = "MAXTIME_REACHED"

// Solver minimises alm problems with nlopt. Every Solve builds its own nlopt objects, so a
// Solver may be shared by concurrent solves.
type Solver struct {
	opts   *Options
	logger logging.Logger
}

// NewSolver validates the options and returns a solver. Nil options mean NewDefaultOptions.
func NewSolver(opts *Options, logger logging.Logger) (*Solver, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Solver{opts: opts, logger: logger}, nil
}

type optimizeReturn struct {
	solution []float64
	cost     float64
	err      error
}

// Solve minimises the problem starting from u and writes the solution back into u. Every entry of
// F1 becomes one equality constraint whose gradient is a row of the constraint Jacobian.
func (s *Solver) Solve(ctx context.Context, p alm.Problem, constraints alm.Constraints, u []float64) (*alm.Status, error) {
	n, n1 := p.Dims()
	if err := rutils.CheckDims("initial guess", u, n); err != nil {
		return nil, err
	}
	if err := checkTargetSet(constraints.C); err != nil {
		return nil, err
	}
	lower, upper, err := boxBounds(constraints.U, n)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	status := &alm.Status{OuterIterations: 1}
	finish := func(exit alm.ExitStatus, err error) (*alm.Status, error) {
		status.ExitStatus = exit
		if cost, costErr := p.Cost(u); costErr == nil {
			status.Cost = cost
		}
		status.SolveTime = time.Since(start)
		return status, err
	}
	if err := ctx.Err(); err != nil {
		return finish(alm.NotConvergedCancelled, err)
	}

	opt, err := nlopt.NewNLopt(nlopt.AUGLAG_EQ, uint(n))
	if err != nil {
		return nil, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()
	local, err := nlopt.NewNLopt(nlopt.LD_LBFGS, uint(n))
	if err != nil {
		return nil, errors.Wrap(err, "nlopt creation error")
	}
	defer local.Destroy()

	failure := atomic.NewError(nil)
	evaluations := atomic.NewInt64(0)
	stop := func(err error) {
		if failure.Load() == nil {
			failure.Store(err)
		}
		if stopErr := opt.ForceStop(); stopErr != nil {
			s.logger.Debugw("forcestop error", "error", stopErr)
		}
	}

	// gradient is, under the hood, an unsafe C array that nlopt expects to be filled in place.
	objective := func(x, gradient []float64) float64 {
		evaluations.Inc()
		cost, err := p.Cost(x)
		if err == nil && !rutils.IsFinite(cost) {
			err = errors.Wrapf(alm.ErrNumerical, "cost is not finite: %v", cost)
		}
		if err == nil && len(gradient) > 0 {
			err = p.Gradient(x, gradient)
		}
		if err != nil {
			stop(err)
			return 0
		}
		return cost
	}
	residuals := func(result, x, gradient []float64) {
		if err := p.Constraints(x, result); err != nil {
			stop(err)
			return
		}
		if len(gradient) == 0 {
			return
		}
		// Row i of the Jacobian is Jᵀe_i.
		unit := make([]float64, n1)
		for i := 0; i < n1; i++ {
			unit[i] = 1
			if err := p.JacobianTransposeProduct(x, unit, gradient[i*n:(i+1)*n]); err != nil {
				stop(err)
				return
			}
			unit[i] = 0
		}
	}

	tolerances := make([]float64, n1)
	for i := range tolerances {
		tolerances[i] = s.opts.Tolerance
	}
	err = multierr.Combine(
		local.SetFtolRel(s.opts.RelativeTolerance),
		local.SetXtolRel(s.opts.RelativeTolerance),
		local.SetMaxEval(s.opts.MaxEvaluations),
		opt.SetLocalOptimizer(local),
		opt.SetFtolRel(s.opts.RelativeTolerance),
		opt.SetXtolRel(s.opts.RelativeTolerance),
		opt.SetMaxEval(s.opts.MaxEvaluations),
		opt.SetMinObjective(objective),
		opt.AddEqualityMConstraint(residuals, tolerances),
	)
	if lower != nil {
		err = multierr.Combine(err, opt.SetLowerBounds(lower), opt.SetUpperBounds(upper))
	}
	if s.opts.MaxDuration > 0 {
		err = multierr.Combine(err, opt.SetMaxTime(s.opts.MaxDuration.Seconds()))
	}
	if err != nil {
		return nil, errors.Wrap(err, "nlopt setup error")
	}

	solveChan := make(chan *optimizeReturn, 1)
	utils.PanicCapturingGoWithCallback(func() {
		solution, cost, err := opt.Optimize(u)
		solveChan <- &optimizeReturn{solution, cost, err}
	}, func(err interface{}) {
		solveChan <- &optimizeReturn{err: errors.Errorf("nlopt panicked: %v", err)}
	})
	var ret *optimizeReturn
	select {
	case <-ctx.Done():
		if stopErr := opt.ForceStop(); stopErr != nil {
			s.logger.CDebugw(ctx, "forcestop error", "error", stopErr)
		}
		ret = <-solveChan
	case ret = <-solveChan:
	}
	status.InnerIterations = int(evaluations.Load())

	if err := failure.Load(); err != nil {
		return finish(alm.NumericalFailure, err)
	}
	if err := ctx.Err(); err != nil {
		return finish(alm.NotConvergedCancelled, err)
	}
	if ret.err != nil {
		return finish(alm.NumericalFailure, errors.Wrap(alm.ErrNumerical, ret.err.Error()))
	}
	if !rutils.IsFinite(ret.solution...) {
		return finish(alm.NumericalFailure, errors.Wrapf(alm.ErrNumerical, "solution is not finite: %v", ret.solution))
	}
	copy(u, ret.solution)

	f1 := make([]float64, n1)
	if err := p.Constraints(u, f1); err != nil {
		return finish(alm.NumericalFailure, err)
	}
	status.ConstraintViolation = floats.Norm(f1, 2)
	s.logger.CDebugw(ctx, "nlopt finished",
		"nlopt_status", opt.LastStatus(),
		"evaluations", status.InnerIterations,
		"constraint_violation", status.ConstraintViolation,
	)
	if floats.Norm(f1, math.Inf(1)) <= s.opts.Tolerance {
		return finish(alm.Converged, nil)
	}
	exit := alm.NotConvergedIterations
	if opt.LastStatus() == maxTimeStatus {
		exit = alm.NotConvergedOutOfTime
	}
	return finish(exit, errors.Wrapf(alm.ErrNotConverged, "%s with constraint violation %v", exit, status.ConstraintViolation))
}
