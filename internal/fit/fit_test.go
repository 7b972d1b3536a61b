package fit

import (
	"context"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestFitLine(t *testing.T) {
	samples := make([]Sample, 0, 10)
	for i := 0; i < 10; i++ {
		x := float64(i)
		samples = append(samples, Sample{X: x, Y: 2 + 0.5*x, Err: 0.1})
	}
	ds := NewDataSet(samples)

	res, err := Fit(context.Background(), ds, line, Params{1, 1}, Simplex{Tolerance: 1e-12})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if math.Abs(res.Params[0]-2) > 1e-3 || math.Abs(res.Params[1]-0.5) > 1e-3 {
		t.Errorf("expected (2, 0.5), got %v", res.Params)
	}
	if res.SampleCount != 10 || res.DegreesOfFreedom != 2 {
		t.Errorf("unexpected counts: n=%d dof=%d", res.SampleCount, res.DegreesOfFreedom)
	}
	if math.Abs(res.ReducedChiSquared-res.ChiSquared/8) > 1e-12 {
		t.Errorf("reduced chi squared %g != %g/8", res.ReducedChiSquared, res.ChiSquared)
	}
	if res.Method != "simplex" || !res.Converged {
		t.Errorf("unexpected outcome %s converged=%v", res.Method, res.Converged)
	}
}

func TestFitHillClimb(t *testing.T) {
	scale := ModelFunc{N: 1, F: func(p Params, x float64) float64 { return p[0] * x }}
	ds := DataSet{{X: 1, Y: 3, Err: 1}, {X: 2, Y: 6, Err: 1}, {X: 3, Y: 9, Err: 1}}

	res, err := Fit(context.Background(), ds, scale, Params{2}, HillClimb{Step: 0.01, Tolerance: 1e-6})
	if err != nil && !errors.Is(err, ErrNonConvergence) {
		t.Fatalf("fit failed: %v", err)
	}
	if math.Abs(res.Params[0]-3) > 0.01 {
		t.Errorf("expected ~3, got %v", res.Params[0])
	}
	if res.DegreesOfFreedom != 1 {
		t.Errorf("expected 1 degree of freedom, got %d", res.DegreesOfFreedom)
	}
}

func TestFitNonConvergenceReturnsResult(t *testing.T) {
	ds := DataSet{{X: 0, Y: 2, Err: 1}, {X: 1, Y: 3, Err: 1}, {X: 2, Y: 4, Err: 1}}

	res, err := Fit(context.Background(), ds, line, Params{0, 0}, Simplex{MaxIter: 2})
	if !errors.Is(err, ErrNonConvergence) {
		t.Fatalf("expected non-convergence, got %v", err)
	}
	if res == nil {
		t.Fatal("expected flagged result alongside non-convergence")
	}
	if res.Converged {
		t.Error("result should be flagged unconverged")
	}
}

func TestFitInsufficientData(t *testing.T) {
	ds := DataSet{{X: 0, Y: 1, Err: 1}, {X: 1, Y: 2, Err: 1}}

	res, err := Fit(context.Background(), ds, line, Params{1, 1}, Simplex{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected insufficient data, got %v", err)
	}
	if res != nil {
		t.Error("expected nil result")
	}
}

func TestPipelineExcludesOutlier(t *testing.T) {
	ds := NewDataSet([]Sample{
		{X: 0, Y: 10, Err: 1},
		{X: 1, Y: 9, Err: 1},
		{X: 2, Y: 1000, Err: 1},
		{X: 3, Y: 7, Err: 1},
	})
	p := Pipeline{Model: decaying, Filter: ResidualFilter{K: 3}, Minimizer: Simplex{}}

	kept, res, err := p.Run(context.Background(), ds, Params{10, 0.1})
	if err != nil && !errors.Is(err, ErrNonConvergence) {
		t.Fatalf("pipeline failed: %v", err)
	}
	if len(kept) != 3 || res.SampleCount != 3 {
		t.Fatalf("expected 3 fitted samples, got %d/%d", len(kept), res.SampleCount)
	}
	if res.ChiSquared > 5 {
		t.Errorf("chi squared %g includes the outlier", res.ChiSquared)
	}
}
