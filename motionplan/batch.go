package motionplan

import (
	"context"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/rhplan/logging"
	"go.viam.com/rhplan/spatialmath"
)

// Scenario is one independent planning request.
type Scenario struct {
	Name      string
	Start     r2.Point
	Goal      r2.Point
	Obstacles []spatialmath.Obstacle
	Options   *PlannerOptions
	// StepSolver solves this scenario's steps instead of the solver shared by PlanAll.
	StepSolver *StepSolver
	// Trace logs every step of this scenario at debug level regardless of the logger's level.
	Trace bool
}

// ScenarioResult is the outcome of planning a Scenario. Plan may be partial when Err is set.
type ScenarioResult struct {
	Name string `json:"name"`
	Plan *Plan  `json:"plan,omitempty"`
	Err  error  `json:"-"`
}

// PlanAll plans every scenario concurrently, one goroutine per scenario. Each scenario builds its
// own problems so nothing but the step solver is shared. Scenarios with their own StepSolver do
// not use stepSolver, which may then be nil. Results are in scenario order and the returned error
// combines every scenario's error.
func PlanAll(ctx context.Context, scenarios []Scenario, stepSolver *StepSolver, logger logging.Logger) ([]*ScenarioResult, error) {
	results := make([]*ScenarioResult, len(scenarios))
	var activeWorkers sync.WaitGroup
	for i, scenario := range scenarios {
		i, scenario := i, scenario
		results[i] = &ScenarioResult{Name: scenario.Name}
		activeWorkers.Add(1)
		// Done is not deferred: on panic the callback records the error and releases the worker.
		utils.PanicCapturingGoWithCallback(func() {
			results[i].Plan, results[i].Err = planScenario(ctx, scenario, stepSolver, logger)
			activeWorkers.Done()
		}, func(err interface{}) {
			results[i].Err = errors.Errorf("planning panicked: %v", err)
			activeWorkers.Done()
		})
	}
	activeWorkers.Wait()

	var combined error
	for _, result := range results {
		if result.Err != nil {
			combined = multierr.Append(combined, errors.Wrapf(result.Err, "scenario %q", result.Name))
		}
	}
	return results, combined
}

func planScenario(ctx context.Context, scenario Scenario, stepSolver *StepSolver, logger logging.Logger) (*Plan, error) {
	if scenario.Trace {
		ctx = logging.EnableDebugMode(ctx, scenario.Name)
	}
	if scenario.StepSolver != nil {
		stepSolver = scenario.StepSolver
	}
	planner, err := NewPlanner(scenario.Obstacles, scenario.Options, stepSolver, logger.Sublogger(scenario.Name))
	if err != nil {
		return nil, err
	}
	return planner.Plan(ctx, scenario.Start, scenario.Goal)
}
