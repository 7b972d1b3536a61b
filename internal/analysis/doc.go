// Package analysis provides residual diagnostics for completed fits.
//
//   - [Summarize]: pull statistics, Durbin-Watson and dominant periodicity
//   - [PowerSpectrum]: residual spectrum via FFT
//
// # Systematic Misfit
//
// A Durbin-Watson statistic well below 2 or a strong spectral peak
// indicates the model misses structure in the data even when reduced
// chi-squared looks acceptable:
//
//	d := analysis.Summarize(fit.Residuals(p, ds, m), ds.Errs())
//	if d.DurbinWatson < 1 {
//	    // residuals are correlated
//	}
package analysis
