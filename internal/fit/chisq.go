package fit

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DegreesOfFreedom returns the number of free parameters used when reducing
// chi-squared. Single-parameter and parameterless fits count as one.
func DegreesOfFreedom(numParams int) int {
	if numParams < 1 {
		return 1
	}
	return numParams
}

// ChiSquared returns the sum of squared, uncertainty-normalised residuals.
// A non-finite prediction makes the statistic +Inf.
func ChiSquared(p Params, ds DataSet, m Model) (float64, error) {
	if err := check(p, ds, m); err != nil {
		return 0, err
	}

	sum := 0.0
	for _, s := range ds {
		r := (s.Y - m.Eval(p, s.X)) / s.Err
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return math.Inf(1), nil
		}
		sum += r * r
	}
	return sum, nil
}

// ReducedChiSquared divides chi-squared by n - dof.
func ReducedChiSquared(p Params, ds DataSet, m Model) (float64, error) {
	chi2, err := ChiSquared(p, ds, m)
	if err != nil {
		return 0, err
	}
	return reduce(chi2, len(ds), len(p))
}

func reduce(chi2 float64, n, numParams int) (float64, error) {
	dof := DegreesOfFreedom(numParams)
	if n <= dof {
		return 0, &FitError{Method: "reduce", Wrapped: ErrInsufficientData}
	}
	return chi2 / float64(n-dof), nil
}

func check(p Params, ds DataSet, m Model) error {
	if len(ds) == 0 {
		return ErrEmptyDataSet
	}
	if len(p) != m.NumParams() {
		return invalidf("fit: %s takes %d parameters, got %d", m.Name(), m.NumParams(), len(p))
	}
	for i, s := range ds {
		if !(s.Err > 0) {
			return invalidf("fit: sample %d has non-positive uncertainty %g", i, s.Err)
		}
	}
	return nil
}

// Predict evaluates the model at every sample.
func Predict(p Params, ds DataSet, m Model) []float64 {
	return Curve(p, m, ds.Xs())
}

// Curve evaluates the model at the given points.
func Curve(p Params, m Model, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = m.Eval(p, x)
	}
	return out
}

// Residuals returns observed minus predicted for every sample.
func Residuals(p Params, ds DataSet, m Model) []float64 {
	out := make([]float64, len(ds))
	floats.SubTo(out, ds.Ys(), Predict(p, ds, m))
	return out
}
