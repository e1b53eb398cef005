package motionplan

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/rhplan/logging"
	"go.viam.com/rhplan/motionplan/alm"
	"go.viam.com/rhplan/spatialmath"
)

// unboundedRadius stands in for an unbounded decision variable and unbounded multipliers.
const unboundedRadius = 1e12

// Solver is a constrained solver a horizon step can be delegated to. Solve writes the solution
// into u and returns its diagnostics.
type Solver interface {
	Solve(ctx context.Context, problem alm.Problem, constraints alm.Constraints, u []float64) (*alm.Status, error)
}

// StepConstraints returns the sets every step is solved with: a practically unbounded decision
// variable, both residuals driven to exactly zero, and practically unbounded multipliers.
func StepConstraints() alm.Constraints {
	return alm.Constraints{
		U: alm.NewBall2(unboundedRadius),
		C: alm.Zero{},
		Y: alm.NewBall2(unboundedRadius),
	}
}

// StepSolver solves the problem of one horizon step and interprets the result.
type StepSolver struct {
	solver Solver
	logger logging.Logger
}

// NewStepSolver wraps a solver.
func NewStepSolver(solver Solver, logger logging.Logger) *StepSolver {
	return &StepSolver{solver: solver, logger: logger}
}

// NewDefaultStepSolver returns a step solver backed by the augmented Lagrangian solver with its
// default options.
func NewDefaultStepSolver(logger logging.Logger) (*StepSolver, error) {
	solver, err := alm.NewSolver(alm.NewDefaultOptions(), logger.Sublogger("alm"))
	if err != nil {
		return nil, err
	}
	return NewStepSolver(solver, logger), nil
}

// SolveStep solves the step starting from the problem's current position and returns the next
// position. Any solver error, a non-converged status or a non-finite solution is a failure. The
// status is returned unmodified whenever the solver produced one.
func (s *StepSolver) SolveStep(ctx context.Context, p *Problem) (r2.Point, *alm.Status, error) {
	u := spatialmath.PositionToSlice(p.XNow())
	status, err := s.solver.Solve(ctx, p, StepConstraints(), u)
	if status != nil {
		s.logger.CDebugw(ctx, "step solved",
			"exit", status.ExitStatus.String(),
			"outer_iterations", status.OuterIterations,
			"inner_iterations", status.InnerIterations,
			"delta_y_norm", status.DeltaYNorm,
			"penalty", status.Penalty,
			"solve_time", status.SolveTime,
		)
	}
	if err != nil {
		return r2.Point{}, status, err
	}
	if !status.HasConverged() {
		return r2.Point{}, status, errors.Wrapf(alm.ErrNotConverged, "solver exited with status %q", status.ExitStatus)
	}
	next, err := spatialmath.PositionFromSlice(u)
	if err != nil {
		return r2.Point{}, status, err
	}
	if !spatialmath.PositionIsFinite(next) {
		return r2.Point{}, status, errors.Wrapf(alm.ErrNumerical, "solution %v is not finite", u)
	}
	return next, status, nil
}
