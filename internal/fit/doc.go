// Package fit implements chi-squared curve fitting of measured samples.
//
// A fit runs in three steps:
//
//   - [Filter]: single-pass outlier rejection ([ResidualFilter], [BandFilter])
//   - [ChiSquared] / [ReducedChiSquared]: goodness of fit for given parameters
//   - [Minimizer]: parameter search ([Simplex] Nelder-Mead, [HillClimb])
//
// [Fit] ties the last two together and [Pipeline] adds filtering.
//
// # Example
//
//	p := fit.Pipeline{
//	    Model:     physics.NewDecayChain(),
//	    Filter:    fit.ResidualFilter{K: 3},
//	    Minimizer: fit.Simplex{},
//	}
//	kept, res, err := p.Run(ctx, ds, fit.Params{5e-4, 5e-3})
//	if errors.Is(err, fit.ErrNonConvergence) {
//	    // res still holds the best point found
//	}
//
// # Errors
//
// Bad data is reported as [ErrInvalidInput] (including [ErrEmptyDataSet] and
// [ErrInsufficientData]); failure to meet a tolerance is [ErrNonConvergence]
// and is never fatal on its own.
package fit
