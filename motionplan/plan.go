package motionplan

import (
	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"

	"go.viam.com/rhplan/motionplan/alm"
	"go.viam.com/rhplan/spatialmath"
)

// Outcome tags how planning ended.
type Outcome int

// The possible planning outcomes.
const (
	Converged Outcome = iota
	MaxStepsExceeded
	StepFailed
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case MaxStepsExceeded:
		return "max steps exceeded"
	case StepFailed:
		return "step failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// MarshalText encodes the outcome as its name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Plan is the result of planning. Path starts at the start position and holds every accepted
// step, including the final one. When planning did not converge Path is the feasible prefix
// computed before the failure.
type Plan struct {
	Path    []r2.Point `json:"path"`
	Outcome Outcome    `json:"outcome"`
	// FailedStep is the 1-based index of the step that failed, or 0.
	FailedStep  int           `json:"failed_step,omitempty"`
	Diagnostics []*alm.Status `json:"diagnostics,omitempty"`
}

// Converged reports whether the goal was reached.
func (p *Plan) Converged() bool {
	return p.Outcome == Converged
}

// End returns the last position of the path.
func (p *Plan) End() r2.Point {
	return p.Path[len(p.Path)-1]
}

// StepLengths returns the distance covered by every step.
func (p *Plan) StepLengths() []float64 {
	if len(p.Path) < 2 {
		return nil
	}
	return lo.Map(p.Path[1:], func(pt r2.Point, i int) float64 {
		return spatialmath.Distance(p.Path[i], pt)
	})
}

// PlanStats summarises a path.
type PlanStats struct {
	Steps          int     `json:"steps"`
	Length         float64 `json:"length"`
	MeanStepLength float64 `json:"mean_step_length"`
	MaxStepLength  float64 `json:"max_step_length"`
	// Total outer iterations over every solved step.
	OuterIterations int `json:"outer_iterations"`
}

// Stats summarises the path and the solver diagnostics.
func (p *Plan) Stats() (*PlanStats, error) {
	ps := &PlanStats{
		OuterIterations: lo.SumBy(p.Diagnostics, func(s *alm.Status) int { return s.OuterIterations }),
	}
	lengths := stats.Float64Data(p.StepLengths())
	ps.Steps = lengths.Len()
	if ps.Steps == 0 {
		return ps, nil
	}
	var err error
	if ps.Length, err = lengths.Sum(); err != nil {
		return nil, err
	}
	if ps.MeanStepLength, err = lengths.Mean(); err != nil {
		return nil, err
	}
	if ps.MaxStepLength, err = lengths.Max(); err != nil {
		return nil, err
	}
	return ps, nil
}
