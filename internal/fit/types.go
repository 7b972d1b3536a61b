package fit

import (
	"math"
	"sort"
)

// Sample is one observation: independent variable, observed value and its
// uncertainty.
type Sample struct {
	X   float64
	Y   float64
	Err float64
}

func (s Sample) IsValid() bool {
	for _, v := range []float64{s.X, s.Y, s.Err} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return s.Err > 0
}

// DataSet is a sequence of samples sorted ascending by X.
type DataSet []Sample

// NewDataSet drops samples with a non-positive or non-finite uncertainty and
// returns the rest sorted by X. The input slice is not modified.
func NewDataSet(samples []Sample) DataSet {
	ds := make(DataSet, 0, len(samples))
	for _, s := range samples {
		if s.IsValid() {
			ds = append(ds, s)
		}
	}
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].X < ds[j].X })
	return ds
}

func (d DataSet) Len() int { return len(d) }

func (d DataSet) Clone() DataSet {
	c := make(DataSet, len(d))
	copy(c, d)
	return c
}

func (d DataSet) Xs() []float64 {
	out := make([]float64, len(d))
	for i, s := range d {
		out[i] = s.X
	}
	return out
}

func (d DataSet) Ys() []float64 {
	out := make([]float64, len(d))
	for i, s := range d {
		out[i] = s.Y
	}
	return out
}

func (d DataSet) Errs() []float64 {
	out := make([]float64, len(d))
	for i, s := range d {
		out[i] = s.Err
	}
	return out
}

// Params is an ordered parameter vector. Operations never modify a Params
// they are given; they return a new one.
type Params []float64

func (p Params) Clone() Params {
	c := make(Params, len(p))
	copy(c, p)
	return c
}

// Model maps parameters and an independent variable to a predicted value.
type Model interface {
	Eval(p Params, x float64) float64
	NumParams() int
	Name() string
}

// ModelFunc adapts a plain function to the Model interface.
type ModelFunc struct {
	Label string
	N     int
	F     func(p Params, x float64) float64
}

func (m ModelFunc) Eval(p Params, x float64) float64 { return m.F(p, x) }
func (m ModelFunc) NumParams() int                   { return m.N }

func (m ModelFunc) Name() string {
	if m.Label == "" {
		return "model"
	}
	return m.Label
}

// Result is the outcome of a completed fit.
type Result struct {
	Params            Params
	ChiSquared        float64
	ReducedChiSquared float64
	SampleCount       int
	DegreesOfFreedom  int
	Iterations        int
	Evaluations       int
	Method            string
	Status            string
	Converged         bool
}
