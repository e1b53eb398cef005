package motionplan

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"

	"go.viam.com/rhplan/logging"
	"go.viam.com/rhplan/motionplan/alm"
	"go.viam.com/rhplan/spatialmath"
)

// greedySolver moves straight towards the goal by at most the step bound, ignoring obstacles.
type greedySolver struct {
	calls      atomic.Int64
	failOnCall int64
	status     alm.ExitStatus
	nan        bool

	mu          sync.Mutex
	constraints alm.Constraints
}

func (g *greedySolver) Solve(ctx context.Context, problem alm.Problem, constraints alm.Constraints, u []float64) (*alm.Status, error) {
	call := g.calls.Inc()
	g.mu.Lock()
	g.constraints = constraints
	g.mu.Unlock()
	status := &alm.Status{ExitStatus: g.status, OuterIterations: 1}
	if call == g.failOnCall {
		return status, errors.Wrap(alm.ErrNotConverged, "scripted failure")
	}
	p := problem.(*Problem)
	step := p.XRef().Sub(p.XNow())
	if norm := step.Norm(); norm > p.UMax() {
		step = step.Mul(p.UMax() / norm)
	}
	next := p.XNow().Add(step)
	if g.nan {
		next.X = math.NaN()
	}
	copy(u, spatialmath.PositionToSlice(next))
	return status, nil
}

func TestPlannerLoop(t *testing.T) {
	logger := logging.NewTestLogger(t)
	solver := &greedySolver{}
	planner, err := NewPlanner(nil, nil, NewStepSolver(solver, logger), logger)
	test.That(t, err, test.ShouldBeNil)

	plan, err := planner.Plan(context.Background(), r2.Point{}, r2.Point{X: 0.3, Y: 0.4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plan.Converged(), test.ShouldBeTrue)
	test.That(t, plan.Outcome, test.ShouldEqual, Converged)
	test.That(t, plan.FailedStep, test.ShouldEqual, 0)
	test.That(t, plan.Path, test.ShouldHaveLength, 6)
	test.That(t, plan.Path[0], test.ShouldResemble, r2.Point{})
	test.That(t, spatialmath.Distance(plan.End(), r2.Point{X: 0.3, Y: 0.4}), test.ShouldBeLessThan, 1e-5)
	test.That(t, plan.Diagnostics, test.ShouldHaveLength, 5)

	// Every step is solved with the same sets.
	ball, ok := solver.constraints.U.(*alm.Ball2)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ball.Radius, test.ShouldEqual, 1e12)
	test.That(t, solver.constraints.C, test.ShouldResemble, alm.Zero{})
	ball, ok = solver.constraints.Y.(*alm.Ball2)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ball.Radius, test.ShouldEqual, 1e12)

	stats, err := plan.Stats()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.Steps, test.ShouldEqual, 5)
	test.That(t, stats.Length, test.ShouldAlmostEqual, 0.5, 1e-12)
	test.That(t, stats.MaxStepLength, test.ShouldAlmostEqual, 0.1, 1e-12)
	test.That(t, stats.OuterIterations, test.ShouldEqual, 5)
}

func TestPlannerStepFailure(t *testing.T) {
	logger := logging.NewTestLogger(t)
	planner, err := NewPlanner(nil, nil, NewStepSolver(&greedySolver{failOnCall: 3}, logger), logger)
	test.That(t, err, test.ShouldBeNil)

	plan, err := planner.Plan(context.Background(), r2.Point{}, r2.Point{X: 10})
	test.That(t, err, test.ShouldNotBeNil)
	var stepErr *StepFailedError
	test.That(t, errors.As(err, &stepErr), test.ShouldBeTrue)
	test.That(t, stepErr.Step, test.ShouldEqual, 3)
	test.That(t, errors.Is(err, alm.ErrNotConverged), test.ShouldBeTrue)

	test.That(t, plan.Outcome, test.ShouldEqual, StepFailed)
	test.That(t, plan.FailedStep, test.ShouldEqual, 3)
	test.That(t, plan.Path, test.ShouldHaveLength, 3)
	test.That(t, plan.End().X, test.ShouldAlmostEqual, 0.2, 1e-12)
	test.That(t, plan.Diagnostics, test.ShouldHaveLength, 3)
}

func TestStepSolverRejectsBadResults(t *testing.T) {
	logger := logging.NewTestLogger(t)
	p, err := NewProblem(r2.Point{}, r2.Point{X: 1}, nil, 0.1)
	test.That(t, err, test.ShouldBeNil)

	_, status, err := NewStepSolver(&greedySolver{status: alm.NotConvergedIterations}, logger).SolveStep(context.Background(), p)
	test.That(t, errors.Is(err, alm.ErrNotConverged), test.ShouldBeTrue)
	test.That(t, status.ExitStatus, test.ShouldEqual, alm.NotConvergedIterations)

	_, _, err = NewStepSolver(&greedySolver{nan: true}, logger).SolveStep(context.Background(), p)
	test.That(t, errors.Is(err, alm.ErrNumerical), test.ShouldBeTrue)

	next, status, err := NewStepSolver(&greedySolver{}, logger).SolveStep(context.Background(), p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status.HasConverged(), test.ShouldBeTrue)
	test.That(t, next.X, test.ShouldAlmostEqual, 0.1, 1e-12)
}

func TestPlannerMaxSteps(t *testing.T) {
	logger := logging.NewTestLogger(t)
	opts := NewBasicPlannerOptions()
	opts.MaxSteps = 7
	planner, err := NewPlanner(nil, opts, NewStepSolver(&greedySolver{}, logger), logger)
	test.That(t, err, test.ShouldBeNil)

	plan, err := planner.Plan(context.Background(), r2.Point{}, r2.Point{X: 100})
	test.That(t, errors.Is(err, ErrMaxStepsExceeded), test.ShouldBeTrue)
	test.That(t, plan.Outcome, test.ShouldEqual, MaxStepsExceeded)
	test.That(t, plan.Path, test.ShouldHaveLength, 8)
	test.That(t, plan.Converged(), test.ShouldBeFalse)
}

func TestPlannerCancelled(t *testing.T) {
	logger := logging.NewTestLogger(t)
	planner, err := NewPlanner(nil, nil, NewStepSolver(&greedySolver{}, logger), logger)
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	plan, err := planner.Plan(ctx, r2.Point{}, r2.Point{X: 1})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, plan.Outcome, test.ShouldEqual, Cancelled)
	test.That(t, plan.Path, test.ShouldHaveLength, 1)
}

func TestPlannerOptionsValidate(t *testing.T) {
	test.That(t, NewBasicPlannerOptions().Validate(), test.ShouldBeNil)

	opts := &PlannerOptions{StepBound: -1, GoalTolerance: 0, LoggingInterval: -1}
	err := opts.Validate()
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 4)

	logger := logging.NewTestLogger(t)
	_, err = NewPlanner(nil, opts, NewStepSolver(&greedySolver{}, logger), logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPlanner(nil, nil, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPlanner([]spatialmath.Obstacle{nil}, nil, NewStepSolver(&greedySolver{}, logger), logger)
	test.That(t, err, test.ShouldNotBeNil)

	planner, err := NewPlanner(nil, nil, NewStepSolver(&greedySolver{}, logger), logger)
	test.That(t, err, test.ShouldBeNil)
	_, err = planner.Plan(context.Background(), r2.Point{X: math.Inf(1)}, r2.Point{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlanStats(t *testing.T) {
	plan := &Plan{Path: []r2.Point{{}, {X: 3, Y: 4}, {X: 3, Y: 5}}}
	stats, err := plan.Stats()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.Steps, test.ShouldEqual, 2)
	test.That(t, stats.Length, test.ShouldEqual, 6.)
	test.That(t, stats.MeanStepLength, test.ShouldEqual, 3.)
	test.That(t, stats.MaxStepLength, test.ShouldEqual, 5.)

	stats, err = (&Plan{Path: []r2.Point{{}}}).Stats()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.Steps, test.ShouldEqual, 0)
	test.That(t, stats.Length, test.ShouldEqual, 0.)
}

func TestPlanAll(t *testing.T) {
	logger := logging.NewTestLogger(t)
	solver := &greedySolver{}
	badOpts := NewBasicPlannerOptions()
	badOpts.MaxSteps = 0

	results, err := PlanAll(context.Background(), []Scenario{
		{Name: "short", Start: r2.Point{}, Goal: r2.Point{X: 0.25}},
		{Name: "bad options", Start: r2.Point{}, Goal: r2.Point{X: 1}, Options: badOpts},
		{Name: "diagonal", Start: r2.Point{X: 1, Y: 1}, Goal: r2.Point{X: 1.3, Y: 1.4}},
	}, NewStepSolver(solver, logger), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 1)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad options")

	test.That(t, results, test.ShouldHaveLength, 3)
	test.That(t, results[0].Name, test.ShouldEqual, "short")
	test.That(t, results[0].Err, test.ShouldBeNil)
	test.That(t, results[0].Plan.Path, test.ShouldHaveLength, 4)
	test.That(t, results[1].Plan, test.ShouldBeNil)
	test.That(t, results[2].Plan.Converged(), test.ShouldBeTrue)
	test.That(t, solver.calls.Load(), test.ShouldEqual, int64(8))
}

func TestPlanAllScenarioStepSolver(t *testing.T) {
	logger := logging.NewTestLogger(t)
	shared := &greedySolver{}
	own := &greedySolver{failOnCall: 1}

	results, err := PlanAll(context.Background(), []Scenario{
		{Name: "shared", Start: r2.Point{}, Goal: r2.Point{X: 0.25}},
		{Name: "own", Start: r2.Point{}, Goal: r2.Point{X: 0.25}, StepSolver: NewStepSolver(own, logger)},
	}, NewStepSolver(shared, logger), logger)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 1)
	test.That(t, results[0].Plan.Converged(), test.ShouldBeTrue)
	test.That(t, results[1].Plan.Outcome, test.ShouldEqual, StepFailed)
	test.That(t, shared.calls.Load(), test.ShouldEqual, int64(3))
	test.That(t, own.calls.Load(), test.ShouldEqual, int64(1))

	// Without a shared solver every scenario must bring its own.
	results, err = PlanAll(context.Background(), []Scenario{
		{Name: "own", Start: r2.Point{}, Goal: r2.Point{X: 0.25}, StepSolver: NewStepSolver(&greedySolver{}, logger)},
		{Name: "missing", Start: r2.Point{}, Goal: r2.Point{X: 0.25}},
	}, nil, logger)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 1)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing")
	test.That(t, results[0].Plan.Converged(), test.ShouldBeTrue)
	test.That(t, results[1].Plan, test.ShouldBeNil)
}

func TestPlanAllTrace(t *testing.T) {
	observerCore, observed := observer.New(zapcore.DebugLevel)
	logger := logging.NewBlankLogger("batch")
	logger.SetLevel(logging.INFO)
	logger.AddAppender(observerCore)
	solver := &greedySolver{}

	_, err := PlanAll(context.Background(), []Scenario{
		{Name: "quiet", Start: r2.Point{}, Goal: r2.Point{X: 0.25}},
		{Name: "traced", Start: r2.Point{}, Goal: r2.Point{Y: 0.25}, Trace: true},
	}, NewStepSolver(solver, logger), logger)
	test.That(t, err, test.ShouldBeNil)

	// Only the traced scenario logs its steps, each tagged with the scenario name.
	solved := observed.FilterMessage("step solved").All()
	test.That(t, solved, test.ShouldHaveLength, 3)
	for _, entry := range solved {
		test.That(t, entry.ContextMap()["trace"], test.ShouldEqual, "traced")
	}
	test.That(t, observed.FilterMessage("goal reached").Len(), test.ShouldEqual, 1)
}

func newDefaultTestPlanner(t *testing.T, obstacles []spatialmath.Obstacle, opts *PlannerOptions) *Planner {
	t.Helper()
	logger := logging.NewTestLogger(t)
	stepSolver, err := NewDefaultStepSolver(logger)
	test.That(t, err, test.ShouldBeNil)
	planner, err := NewPlanner(obstacles, opts, stepSolver, logger)
	test.That(t, err, test.ShouldBeNil)
	return planner
}

// Every accepted step satisfies both residuals to the solver's delta tolerance.
const residualTolerance = 1e-5 + 1e-9

func TestPlanAroundCircle(t *testing.T) {
	circle, err := spatialmath.NewCircle(r2.Point{X: 5, Y: 5}, 1, "circle")
	test.That(t, err, test.ShouldBeNil)
	start, goal := r2.Point{X: 1, Y: 0}, r2.Point{X: 10, Y: 10}
	planner := newDefaultTestPlanner(t, []spatialmath.Obstacle{circle}, nil)

	plan, err := planner.Plan(context.Background(), start, goal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plan.Outcome, test.ShouldEqual, Converged)
	test.That(t, plan.Path[0], test.ShouldResemble, start)
	test.That(t, spatialmath.Distance(plan.End(), goal), test.ShouldBeLessThan, 1e-5)

	for _, pt := range plan.Path {
		test.That(t, circle.H(pt), test.ShouldBeLessThanOrEqualTo, residualTolerance)
	}
	for _, length := range plan.StepLengths() {
		test.That(t, length, test.ShouldBeLessThanOrEqualTo, 0.1+residualTolerance)
	}
	minSteps := int(math.Floor(spatialmath.Distance(start, goal) / (0.1 + residualTolerance)))
	test.That(t, len(plan.Path)-1, test.ShouldBeGreaterThanOrEqualTo, minSteps)
	test.That(t, len(plan.Path)-1, test.ShouldBeLessThan, 1000)
}

func TestPlanWithoutObstacles(t *testing.T) {
	start, goal := r2.Point{}, r2.Point{X: 1, Y: 1}
	planner := newDefaultTestPlanner(t, nil, nil)

	plan, err := planner.Plan(context.Background(), start, goal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plan.Converged(), test.ShouldBeTrue)
	test.That(t, spatialmath.Distance(plan.End(), goal), test.ShouldBeLessThan, 1e-5)

	direction := goal.Sub(start).Normalize()
	for _, pt := range plan.Path {
		offLine := math.Abs(pt.Sub(start).Cross(direction))
		test.That(t, offLine, test.ShouldBeLessThan, 1e-4)
	}
	for _, length := range plan.StepLengths() {
		test.That(t, length, test.ShouldBeLessThanOrEqualTo, 0.1+residualTolerance)
	}
}

func TestPlanUnreachableGoal(t *testing.T) {
	circle, err := spatialmath.NewCircle(r2.Point{X: 5, Y: 5}, 1, "circle")
	test.That(t, err, test.ShouldBeNil)
	opts := NewBasicPlannerOptions()
	opts.MaxSteps = 60
	planner := newDefaultTestPlanner(t, []spatialmath.Obstacle{circle}, opts)

	// The goal is the centre of the obstacle.
	plan, err := planner.Plan(context.Background(), r2.Point{X: 1, Y: 0}, r2.Point{X: 5, Y: 5})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, plan.Converged(), test.ShouldBeFalse)
	test.That(t, len(plan.Path), test.ShouldBeLessThanOrEqualTo, opts.MaxSteps+1)

	var stepErr *StepFailedError
	switch plan.Outcome {
	case MaxStepsExceeded:
		test.That(t, errors.Is(err, ErrMaxStepsExceeded), test.ShouldBeTrue)
	case StepFailed:
		test.That(t, errors.As(err, &stepErr), test.ShouldBeTrue)
	case Converged, Cancelled:
		t.Fatalf("unexpected outcome %s", plan.Outcome)
	}
}
