package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Diagnostics summarises the residuals of a fit.
type Diagnostics struct {
	// Mean and StdDev are of the pulls, residual/uncertainty.
	Mean   float64
	StdDev float64
	// MaxAbsPull is the largest |residual/uncertainty|.
	MaxAbsPull float64
	// DurbinWatson is near 2 for uncorrelated residuals and falls towards 0
	// when neighbouring residuals share a sign.
	DurbinWatson float64
	// DominantCycles is the strongest residual periodicity, in cycles over
	// the whole data set. Zero means none.
	DominantCycles int
}

// Pulls divides each residual by its uncertainty.
func Pulls(residuals, errs []float64) []float64 {
	out := make([]float64, len(residuals))
	for i, r := range residuals {
		out[i] = r / errs[i]
	}
	return out
}

func Summarize(residuals, errs []float64) Diagnostics {
	if len(residuals) == 0 || len(residuals) != len(errs) {
		return Diagnostics{}
	}
	pulls := Pulls(residuals, errs)

	var d Diagnostics
	d.Mean, d.StdDev = stat.PopMeanStdDev(pulls, nil)
	for _, p := range pulls {
		d.MaxAbsPull = math.Max(d.MaxAbsPull, math.Abs(p))
	}
	d.DurbinWatson = DurbinWatson(residuals)
	d.DominantCycles = DominantBin(PowerSpectrum(pulls))
	return d
}

// DurbinWatson is the sum of squared successive differences over the sum
// of squares. It returns 0 for fewer than two residuals or all-zero input.
func DurbinWatson(residuals []float64) float64 {
	if len(residuals) < 2 {
		return 0
	}
	num, den := 0.0, 0.0
	for i, r := range residuals {
		den += r * r
		if i > 0 {
			d := r - residuals[i-1]
			num += d * d
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func (d Diagnostics) String() string {
	return fmt.Sprintf("residuals: mean pull %.3f, pull spread %.3f, largest pull %.2f, Durbin-Watson %.2f, dominant cycles %d",
		d.Mean, d.StdDev, d.MaxAbsPull, d.DurbinWatson, d.DominantCycles)
}
