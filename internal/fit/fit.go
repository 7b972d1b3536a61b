package fit

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Fit minimises reduced chi-squared of m over ds starting from init.
//
// When the minimizer stops without converging, Fit returns the flagged
// result for the best point found together with an error wrapping
// ErrNonConvergence. Any other error returns a nil result.
func Fit(ctx context.Context, ds DataSet, m Model, init Params, minimizer Minimizer) (*Result, error) {
	if err := check(init, ds, m); err != nil {
		return nil, err
	}
	if len(ds) <= DegreesOfFreedom(len(init)) {
		return nil, errors.Wrapf(ErrInsufficientData, "%d samples for %d parameters", len(ds), len(init))
	}

	obj := func(p Params) (float64, error) {
		return ReducedChiSquared(p, ds, m)
	}

	out, minErr := minimizer.Minimize(ctx, obj, init.Clone())
	if minErr != nil && !errors.Is(minErr, ErrNonConvergence) {
		return nil, minErr
	}

	chi2, err := ChiSquared(out.Params, ds, m)
	if err != nil {
		return nil, err
	}
	red, err := reduce(chi2, len(ds), len(out.Params))
	if err != nil {
		return nil, err
	}

	res := &Result{
		Params:            out.Params.Clone(),
		ChiSquared:        chi2,
		ReducedChiSquared: red,
		SampleCount:       len(ds),
		DegreesOfFreedom:  DegreesOfFreedom(len(out.Params)),
		Iterations:        out.Iterations,
		Evaluations:       out.Evaluations,
		Method:            minimizer.Name(),
		Status:            out.Status,
		Converged:         out.Converged,
	}
	return res, minErr
}

// Pipeline filters outliers against the initial parameters, then fits.
// The filtered data set is returned alongside the result so callers can
// report and plot exactly what was fitted.
type Pipeline struct {
	Model     Model
	Filter    Filter
	Minimizer Minimizer
}

func (p Pipeline) Run(ctx context.Context, ds DataSet, init Params) (DataSet, *Result, error) {
	kept := ds
	if p.Filter != nil {
		var err error
		kept, err = p.Filter.Apply(ds, p.Model, init)
		if err != nil {
			return nil, nil, err
		}
	}
	res, err := Fit(ctx, kept, p.Model, init, p.Minimizer)
	return kept, res, err
}
