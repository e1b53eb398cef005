package motionplan

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMaxStepsExceeded is returned, wrapped, when the goal was not reached within the step budget.
var ErrMaxStepsExceeded = errors.New("goal not reached within the maximum number of steps")

// StepFailedError reports which horizon step could not be solved. The plan returned alongside it
// holds every position accepted before the failure.
type StepFailedError struct {
	Step int
	Err  error
}

// NewStepFailedError returns a StepFailedError for the given 1-based step.
func NewStepFailedError(step int, err error) error {
	return &StepFailedError{Step: step, Err: err}
}

func (e *StepFailedError) Error() string {
	return fmt.Sprintf("horizon step %d failed: %v", e.Step, e.Err)
}

// Unwrap returns the error the step failed with.
func (e *StepFailedError) Unwrap() error {
	return e.Err
}

func newMaxStepsExceededError(maxSteps int, remaining float64) error {
	return errors.Wrapf(ErrMaxStepsExceeded, "%d steps taken, %v from the goal", maxSteps, remaining)
}

func newBadStepBoundError(uMax float64) error {
	return errors.Errorf("step bound must be positive and finite, got %v", uMax)
}
