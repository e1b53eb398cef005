package alm

import (
	"github.com/pkg/errors"
)

var (
	// ErrNotConverged is returned, wrapped, when the iteration or time budget ran out before the
	// exit criteria were met.
	ErrNotConverged = errors.New("solver did not converge")

	// ErrNumerical is returned, wrapped, when the cost or constraint mapping evaluates to a
	// non-finite value.
	ErrNumerical = errors.New("numerical failure in solver")
)

func newNotConvergedError(exit ExitStatus, outer int) error {
	return errors.Wrapf(ErrNotConverged, "%s after %d outer iterations", exit, outer)
}

func newNonFiniteError(name string, values ...float64) error {
	return errors.Wrapf(ErrNumerical, "%s is not finite: %v", name, values)
}
