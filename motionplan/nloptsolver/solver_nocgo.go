//go:build windows || no_cgo

// Package nloptsolver solves step problems with nlopt. It needs cgo.
package nloptsolver

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/rhplan/logging"
	"go.viam.com/rhplan/motionplan/alm"
)

var errNotSupported = errors.New("nlopt is not supported on this build")

// Solver mimics the type in the cgo compiled code.
type Solver struct{}

// NewSolver is not supported without cgo.
func NewSolver(opts *Options, logger logging.Logger) (*Solver, error) {
	return nil, errNotSupported
}

// Solve refuses to solve problems without cgo.
func (s *Solver) Solve(ctx context.Context, p alm.Problem, constraints alm.Constraints, u []float64) (*alm.Status, error) {
	return nil, errNotSupported
}
