package motionplan

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rhplan/utils"
)

// default values for planning options.
const (
	// Maximum distance between consecutive path points.
	defaultStepBound = 0.1

	// Number of horizon steps after which planning gives up.
	defaultMaxSteps = 10000

	// Distance below which a position is considered to be at the goal.
	defaultGoalTolerance = 1e-5

	// Log progress every this many steps.
	defaultLoggingInterval = 100
)

// PlannerOptions are a set of options to be passed to a planner which will specify how to solve a
// receding horizon planning problem.
type PlannerOptions struct {
	// Maximum distance the robot may move in one step.
	StepBound float64 `json:"u_max"`

	// Number of steps before terminating the planner.
	MaxSteps int `json:"max_steps"`

	// The goal is reached once the robot is closer than this.
	GoalTolerance float64 `json:"goal_tolerance"`

	// Log progress every this many steps. Zero disables progress logs.
	LoggingInterval int `json:"logging_interval"`
}

// NewBasicPlannerOptions returns the default planner options.
func NewBasicPlannerOptions() *PlannerOptions {
	return &PlannerOptions{
		StepBound:       defaultStepBound,
		MaxSteps:        defaultMaxSteps,
		GoalTolerance:   defaultGoalTolerance,
		LoggingInterval: defaultLoggingInterval,
	}
}

// Validate returns every invalid option at once.
func (p *PlannerOptions) Validate() error {
	if p == nil {
		return errors.New("planner options are nil")
	}
	var err error
	if !(p.StepBound > 0) || !utils.IsFinite(p.StepBound) {
		err = multierr.Append(err, newBadStepBoundError(p.StepBound))
	}
	if p.MaxSteps < 1 {
		err = multierr.Append(err, errors.Errorf("max_steps must be at least 1, got %d", p.MaxSteps))
	}
	if !(p.GoalTolerance > 0) {
		err = multierr.Append(err, errors.Errorf("goal_tolerance must be positive, got %v", p.GoalTolerance))
	}
	if p.LoggingInterval < 0 {
		err = multierr.Append(err, errors.New("logging_interval must not be negative"))
	}
	return err
}
