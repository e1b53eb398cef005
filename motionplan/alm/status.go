package alm

import (
	"time"
)

// ExitStatus describes why the solver stopped.
type ExitStatus int

// The possible exit statuses.
const (
	Converged ExitStatus = iota
	NotConvergedIterations
	NotConvergedOutOfTime
	NotConvergedCancelled
	NumericalFailure
)

func (e ExitStatus) String() string {
	switch e {
	case Converged:
		return "converged"
	case NotConvergedIterations:
		return "not converged: iteration limit"
	case NotConvergedOutOfTime:
		return "not converged: out of time"
	case NotConvergedCancelled:
		return "not converged: cancelled"
	case NumericalFailure:
		return "numerical failure"
	}
	return "unknown"
}

// Status holds the diagnostics of one Solve call. It is returned on failure too and then
// describes the last completed outer iteration.
type Status struct {
	ExitStatus      ExitStatus `json:"exit_status"`
	OuterIterations int        `json:"outer_iterations"`
	InnerIterations int        `json:"inner_iterations"`
	// DeltaYNorm is the norm of the last multiplier update.
	DeltaYNorm float64 `json:"delta_y_norm"`
	// ConstraintViolation is the distance of F1 from its target set at the returned point.
	ConstraintViolation float64 `json:"constraint_violation"`
	// InnerGradientNorm is the infinity norm of the gradient at the end of the last inner solve.
	InnerGradientNorm   float64       `json:"inner_gradient_norm"`
	InnerTolerance      float64       `json:"inner_tolerance"`
	Penalty             float64       `json:"penalty"`
	LagrangeMultipliers []float64     `json:"lagrange_multipliers"`
	Cost                float64       `json:"cost"`
	SolveTime           time.Duration `json:"solve_time"`
}

// HasConverged reports whether the exit criteria were met.
func (s *Status) HasConverged() bool {
	return s != nil && s.ExitStatus == Converged
}
