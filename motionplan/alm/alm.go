// Package alm solves constrained minimisation problems
//
//	minimise f(u) subject to u ∈ U and F1(u) ∈ C
//
// with an augmented Lagrangian method. Each outer iteration minimises the augmented cost
//
//	ψ(u; y, c) = f(u) + c/2 · dist²_C(F1(u) + y/c)
//
// with L-BFGS to the current inner tolerance, then updates the multipliers y, the penalty c and
// the inner tolerance. Only the cost, its gradient, the constraint mapping and the transposed
// Jacobian product of the constraint mapping are needed.
package alm

import (
	"context"
	"math"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"go.viam.com/rhplan/logging"
	"go.viam.com/rhplan/utils"
)

// Solver is an augmented Lagrangian solver. It holds no per-problem state and may be shared by
// concurrent solves.
type Solver struct {
	opts   *Options
	logger logging.Logger
	clock  clock.Clock
}

// NewSolver validates the options and returns a solver. Nil options mean NewDefaultOptions.
func NewSolver(opts *Options, logger logging.Logger) (*Solver, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Solver{opts: opts, logger: logger, clock: clock.New()}, nil
}

// SetClock replaces the clock used to measure solve time and enforce MaxDuration.
func (s *Solver) SetClock(clk clock.Clock) {
	s.clock = clk
}

// Options returns a copy of the solver's options.
func (s *Solver) Options() Options {
	return *s.opts
}

// Solve minimises the problem starting from u and writes the solution back into u. The returned
// status is non-nil whenever the dimensions were valid, including on failure.
func (s *Solver) Solve(ctx context.Context, p Problem, constraints Constraints, u []float64) (*Status, error) {
	n, n1 := p.Dims()
	if err := utils.CheckDims("initial guess", u, n); err != nil {
		return nil, err
	}
	cons := constraints.withDefaults()
	opts := s.opts
	start := s.clock.Now()

	y := make([]float64, n1)
	for i := range y {
		y[i] = opts.InitialLagrangeMultiplier
	}
	cons.Y.Project(y)
	cons.U.Project(u)

	c := opts.InitialPenalty
	eps := opts.InitialInnerTolerance
	status := &Status{Penalty: c, InnerTolerance: eps}
	finish := func(exit ExitStatus, err error) (*Status, error) {
		status.ExitStatus = exit
		status.LagrangeMultipliers = append([]float64(nil), y...)
		if cost, costErr := p.Cost(u); costErr == nil {
			status.Cost = cost
		}
		status.SolveTime = s.clock.Since(start)
		return status, err
	}

	var (
		f1             = make([]float64, n1)
		t              = make([]float64, n1)
		yNext          = make([]float64, n1)
		prevDeltaYNorm = math.Inf(1)
	)
	for outer := 1; outer <= opts.MaxOuterIterations; outer++ {
		if err := ctx.Err(); err != nil {
			return finish(NotConvergedCancelled, err)
		}
		if opts.MaxDuration > 0 && s.clock.Since(start) > opts.MaxDuration {
			return finish(NotConvergedOutOfTime, newNotConvergedError(NotConvergedOutOfTime, status.OuterIterations))
		}
		status.OuterIterations = outer

		inner := newInnerProblem(p, n1, y, c, cons.C)
		result, innerErr := optimize.Minimize(inner.optimizeProblem(), u, &optimize.Settings{
			GradientThreshold: eps,
			MajorIterations:   opts.MaxInnerIterations,
		}, newInnerMethod(opts))
		if err := inner.err.Load(); err != nil {
			return finish(NumericalFailure, err)
		}
		if result != nil {
			status.InnerIterations += result.MajorIterations
			if result.Gradient != nil {
				status.InnerGradientNorm = floats.Norm(result.Gradient, math.Inf(1))
			}
			// The best location is only meaningful once a finite value was recorded.
			if utils.IsFinite(result.F) && utils.IsFinite(result.X...) {
				copy(u, result.X)
			}
		}
		if innerErr != nil {
			s.logger.CDebugw(ctx, "inner solve stopped early", "outer", outer, "error", innerErr)
		}
		cons.U.Project(u)

		if err := p.Constraints(u, f1); err != nil {
			return finish(NumericalFailure, err)
		}
		if !utils.IsFinite(f1...) {
			return finish(NumericalFailure, newNonFiniteError("constraint mapping", f1...))
		}
		status.ConstraintViolation = distanceToSet(cons.C, f1)

		// y+ = Π_Y(y + c(F1(u) - Π_C(F1(u) + y/c)))
		for i := range t {
			t[i] = f1[i] + y[i]/c
		}
		cons.C.Project(t)
		for i := range yNext {
			yNext[i] = y[i] + c*(f1[i]-t[i])
		}
		cons.Y.Project(yNext)
		deltaYNorm := floats.Distance(yNext, y, 2)
		copy(y, yNext)

		status.DeltaYNorm = deltaYNorm
		status.Penalty = c
		status.InnerTolerance = eps
		s.logger.CDebugw(ctx, "outer iteration",
			"outer", outer,
			"inner_iterations", status.InnerIterations,
			"delta_y_norm", deltaYNorm,
			"penalty", c,
			"inner_tolerance", eps,
			"u", u,
		)

		if deltaYNorm <= c*opts.DeltaTolerance && eps <= opts.EpsilonTolerance {
			return finish(Converged, nil)
		}
		if deltaYNorm > opts.SufficientDecreaseCoefficient*prevDeltaYNorm {
			c *= opts.PenaltyUpdateFactor
		}
		eps = math.Max(opts.InnerToleranceUpdateFactor*eps, opts.EpsilonTolerance)
		prevDeltaYNorm = deltaYNorm
	}
	return finish(NotConvergedIterations, newNotConvergedError(NotConvergedIterations, status.OuterIterations))
}

func distanceToSet(set Set, x []float64) float64 {
	projected := append([]float64(nil), x...)
	set.Project(projected)
	return floats.Distance(x, projected, 2)
}

// newInnerMethod returns L-BFGS with an Armijo backtracking line search. The residuals are
// ramps, so the augmented cost has kinks where a curvature condition can never be met.
func newInnerMethod(opts *Options) optimize.Method {
	return &optimize.LBFGS{
		Store:        opts.LBFGSMemory,
		Linesearcher: &optimize.Backtracking{},
	}
}

// innerProblem is the augmented cost of one outer iteration. The first callback failure is
// recorded and reported to gonum through Status so the inner solve stops.
type innerProblem struct {
	problem Problem
	n1      int
	y       []float64
	c       float64
	target  Set
	err     *atomic.Error
}

func newInnerProblem(p Problem, n1 int, y []float64, c float64, target Set) *innerProblem {
	return &innerProblem{problem: p, n1: n1, y: y, c: c, target: target, err: atomic.NewError(nil)}
}

func (ip *innerProblem) optimizeProblem() optimize.Problem {
	return optimize.Problem{
		Func:   ip.value,
		Grad:   ip.grad,
		Status: ip.status,
	}
}

func (ip *innerProblem) fail(err error) {
	if ip.err.Load() == nil {
		ip.err.Store(err)
	}
}

// residual stores t - Π_C(t) with t = F1(u) + y/c in d.
func (ip *innerProblem) residual(u, d []float64) error {
	if err := ip.problem.Constraints(u, d); err != nil {
		return err
	}
	for i := range d {
		d[i] += ip.y[i] / ip.c
	}
	projected := append([]float64(nil), d...)
	ip.target.Project(projected)
	floats.Sub(d, projected)
	return nil
}

// value returns +Inf at non-finite trial points so the line search shrinks its step. Non-finite
// values at finite points are fatal.
func (ip *innerProblem) value(u []float64) float64 {
	if !utils.IsFinite(u...) {
		return math.Inf(1)
	}
	f, err := ip.problem.Cost(u)
	if err != nil {
		ip.fail(err)
		return math.Inf(1)
	}
	d := make([]float64, ip.n1)
	if err := ip.residual(u, d); err != nil {
		ip.fail(err)
		return math.Inf(1)
	}
	psi := f + ip.c/2*floats.Dot(d, d)
	if !utils.IsFinite(psi) {
		ip.fail(newNonFiniteError("augmented cost", f, psi))
		return math.Inf(1)
	}
	return psi
}

// grad stores ∇f(u) + c·J_F1(u)ᵀ(t - Π_C(t)).
func (ip *innerProblem) grad(grad, u []float64) {
	if !utils.IsFinite(u...) {
		for i := range grad {
			grad[i] = math.NaN()
		}
		return
	}
	if err := ip.problem.Gradient(u, grad); err != nil {
		ip.fail(err)
		return
	}
	d := make([]float64, ip.n1)
	if err := ip.residual(u, d); err != nil {
		ip.fail(err)
		return
	}
	floats.Scale(ip.c, d)
	jtd := make([]float64, len(u))
	if err := ip.problem.JacobianTransposeProduct(u, d, jtd); err != nil {
		ip.fail(err)
		return
	}
	floats.Add(grad, jtd)
	if !utils.IsFinite(grad...) {
		ip.fail(newNonFiniteError("augmented gradient", grad...))
	}
}

func (ip *innerProblem) status() (optimize.Status, error) {
	if err := ip.err.Load(); err != nil {
		return optimize.Failure, err
	}
	return optimize.NotTerminated, nil
}
