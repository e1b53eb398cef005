// Package motionplan plans collision free paths for a point robot in the plane with a receding
// horizon: every step solves a small nonlinear program that moves the robot at most a fixed
// distance towards the goal while keeping it outside every obstacle.
package motionplan

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/rhplan/logging"
	"go.viam.com/rhplan/spatialmath"
)

// Planner repeatedly solves horizon steps from the latest position until the goal is reached.
type Planner struct {
	obstacles  []spatialmath.Obstacle
	opts       *PlannerOptions
	stepSolver *StepSolver
	logger     logging.Logger
}

// NewPlanner returns a planner for the given obstacles. Nil options mean NewBasicPlannerOptions.
func NewPlanner(
	obstacles []spatialmath.Obstacle,
	opts *PlannerOptions,
	stepSolver *StepSolver,
	logger logging.Logger,
) (*Planner, error) {
	if opts == nil {
		opts = NewBasicPlannerOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if stepSolver == nil {
		return nil, errors.New("planner needs a step solver")
	}
	for i, o := range obstacles {
		if o == nil {
			return nil, errors.Errorf("obstacle %d is nil", i)
		}
	}
	return &Planner{obstacles: obstacles, opts: opts, stepSolver: stepSolver, logger: logger}, nil
}

// Options returns a copy of the planner's options.
func (pl *Planner) Options() PlannerOptions {
	return *pl.opts
}

// Plan moves from start towards goal one horizon step at a time. The returned plan is non-nil
// whenever the inputs were valid. If the goal was not reached the plan holds the path computed so
// far and the error is ErrMaxStepsExceeded, a *StepFailedError or the context's error.
func (pl *Planner) Plan(ctx context.Context, start, goal r2.Point) (*Plan, error) {
	if !spatialmath.PositionIsFinite(start) || !spatialmath.PositionIsFinite(goal) {
		return nil, errors.Errorf("start %v and goal %v must be finite", start, goal)
	}
	plan := &Plan{Path: []r2.Point{start}}
	xNow := start

	for step := 1; step <= pl.opts.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			plan.Outcome = Cancelled
			return plan, err
		}
		problem, err := NewProblem(xNow, goal, pl.obstacles, pl.opts.StepBound)
		if err != nil {
			return nil, err
		}
		next, status, err := pl.stepSolver.SolveStep(ctx, problem)
		if status != nil {
			plan.Diagnostics = append(plan.Diagnostics, status)
		}
		if err != nil {
			plan.Outcome = StepFailed
			plan.FailedStep = step
			pl.logger.CDebugw(ctx, "horizon step failed", "step", step, "x_now", xNow, "error", err)
			return plan, NewStepFailedError(step, err)
		}
		plan.Path = append(plan.Path, next)

		remaining := spatialmath.Distance(next, goal)
		if pl.opts.LoggingInterval > 0 && step%pl.opts.LoggingInterval == 0 {
			pl.logger.CDebugw(ctx, "planning progress", "step", step, "position", next, "remaining", remaining)
		}
		if remaining < pl.opts.GoalTolerance {
			plan.Outcome = Converged
			pl.logger.CDebugw(ctx, "goal reached", "steps", step)
			return plan, nil
		}
		xNow = next
	}

	plan.Outcome = MaxStepsExceeded
	return plan, newMaxStepsExceededError(pl.opts.MaxSteps, spatialmath.Distance(xNow, goal))
}
