// Package numdiff estimates gradients and Jacobians of vector valued functions with one-sided
// forward differences.
//
// A single routine, Jacobian, serves every use site: a gradient is the one row Jacobian of a
// scalar function. Each call evaluates the function once at the origin and once per input
// coordinate, and every perturbed evaluation is reused across all output rows.
package numdiff

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rhplan/utils"
)

// DefaultStep is the fixed perturbation applied to each coordinate. It trades truncation error
// against floating point cancellation; no adaptive step sizing is performed.
const DefaultStep = 1e-6

// ErrNumerical is returned, wrapped, when the function produces a NaN or infinite value at the
// origin or at a perturbed point, or when the configured step cannot form a quotient.
var ErrNumerical = errors.New("numerical failure in finite difference")

// Func is a vector valued function of x. The result is stored in y, whose length is the number of
// rows of the Jacobian. Func must not retain or modify x.
type Func func(y, x []float64) error

// ScalarFunc is a real valued function of x.
type ScalarFunc func(x []float64) (float64, error)

// Settings configures a finite difference evaluation. A nil *Settings uses DefaultStep serially.
type Settings struct {
	// Step is the perturbation size. Zero means DefaultStep.
	Step float64
	// Concurrent evaluates the perturbed columns in parallel. Func must then be safe for
	// concurrent use.
	Concurrent bool
	// OriginValue is f(x) when the caller already has it. It saves the baseline evaluation.
	OriginValue []float64
}

func (s *Settings) step() (float64, error) {
	if s == nil || s.Step == 0 {
		return DefaultStep, nil
	}
	if !(s.Step > 0) || math.IsInf(s.Step, 1) {
		return 0, errors.Wrapf(ErrNumerical, "invalid step %v", s.Step)
	}
	return s.Step, nil
}

// Jacobian computes the m×n forward difference Jacobian of f at x into dst, where
//
//	dst[i][j] = (f_i(x + step*e_j) - f_i(x)) / step
//
// dst must already be sized m×n with n == len(x).
func Jacobian(dst *mat.Dense, f Func, x []float64, settings *Settings) error {
	if dst == nil || dst.IsEmpty() {
		return errors.New("jacobian destination must be allocated")
	}
	m, n := dst.Dims()
	if len(x) == 0 {
		return utils.NewDimensionMismatchError("x", 0, n)
	}
	if n != len(x) {
		return utils.NewDimensionMismatchError("jacobian columns", n, len(x))
	}
	step, err := settings.step()
	if err != nil {
		return err
	}

	var origin []float64
	if settings != nil && settings.OriginValue != nil {
		if err := utils.CheckDims("origin value", settings.OriginValue, m); err != nil {
			return err
		}
		origin = settings.OriginValue
	} else {
		origin = make([]float64, m)
		if err := f(origin, x); err != nil {
			return err
		}
	}
	if !utils.IsFinite(origin...) {
		return errors.Wrap(ErrNumerical, "function is not finite at the origin")
	}

	var (
		nonFinite = atomic.NewBool(false)
		evalErr   = atomic.NewError(nil)
	)
	checked := func(y, xp []float64) {
		if err := f(y, xp); err != nil {
			evalErr.Store(err)
			return
		}
		if !utils.IsFinite(y...) {
			nonFinite.Store(true)
		}
	}

	fd.Jacobian(dst, checked, x, &fd.JacobianSettings{
		Formula:     fd.Forward,
		OriginValue: origin,
		Step:        step,
		Concurrent:  settings != nil && settings.Concurrent,
	})

	if err := evalErr.Load(); err != nil {
		return err
	}
	if nonFinite.Load() {
		return errors.Wrap(ErrNumerical, "function is not finite at a perturbed point")
	}
	return nil
}

// Gradient computes the forward difference gradient of f at x into dst as the single row
// Jacobian of f.
func Gradient(dst []float64, f ScalarFunc, x []float64, settings *Settings) error {
	if len(x) == 0 {
		return utils.NewDimensionMismatchError("x", 0, len(dst))
	}
	if err := utils.CheckDims("gradient", dst, len(x)); err != nil {
		return err
	}
	// The row view shares dst as its backing store, so the Jacobian is written in place.
	row := mat.NewDense(1, len(x), dst)
	return Jacobian(row, func(y, xp []float64) error {
		v, err := f(xp)
		if err != nil {
			return err
		}
		y[0] = v
		return nil
	}, x, settings)
}
