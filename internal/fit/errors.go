package fit

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error taxonomy for fitting operations.
var (
	// ErrInvalidInput indicates bad data reached a fit operation: an empty
	// data set, a non-positive uncertainty, or a parameter count mismatch.
	ErrInvalidInput = errors.New("fit: invalid input")

	// ErrNonConvergence indicates the minimizer stopped without meeting its
	// tolerance. The accompanying result still carries the best point found.
	ErrNonConvergence = errors.New("fit: desired precision cannot be obtained")

	// ErrMissingResource indicates an input file could not be found or read.
	ErrMissingResource = errors.New("fit: missing resource")

	// ErrEmptyDataSet indicates no samples survived ingestion or filtering.
	ErrEmptyDataSet = errors.Mark(errors.New("fit: empty data set"), ErrInvalidInput)

	// ErrInsufficientData indicates too few samples for the degrees of freedom.
	ErrInsufficientData = errors.Mark(errors.New("fit: sample count does not exceed degrees of freedom"), ErrInvalidInput)
)

// FitError wraps an error with minimizer context.
type FitError struct {
	Method     string
	Iterations int
	Best       Params
	Wrapped    error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s after %d iterations: %v", e.Method, e.Iterations, e.Wrapped)
}

func (e *FitError) Unwrap() error {
	return e.Wrapped
}

func invalidf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidInput)
}
