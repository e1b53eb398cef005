package utils

import "github.com/pkg/errors"

// ErrDimensionMismatch is returned, wrapped, whenever a vector does not have the length a
// formulation or solver was configured with. Vectors are never truncated or padded.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// NewDimensionMismatchError returns an error wrapping ErrDimensionMismatch for the named vector.
func NewDimensionMismatchError(name string, got, want int) error {
	return errors.Wrapf(ErrDimensionMismatch, "%s has length %d but %d was expected", name, got, want)
}

// CheckDims returns a dimension mismatch error if len(v) != want.
func CheckDims(name string, v []float64, want int) error {
	if len(v) != want {
		return NewDimensionMismatchError(name, len(v), want)
	}
	return nil
}
