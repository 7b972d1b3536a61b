package fit

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultOutlierK is the default rejection threshold multiple.
const DefaultOutlierK = 3.0

// Filter removes outliers from a data set in a single pass.
type Filter interface {
	Apply(ds DataSet, m Model, p Params) (DataSet, error)
}

// ResidualFilter keeps samples whose residual against the model at p is
// strictly inside K times a reference scale. A zero Scale uses the mean
// uncertainty of the data being filtered.
type ResidualFilter struct {
	K     float64
	Scale float64
}

func (f ResidualFilter) Apply(ds DataSet, m Model, p Params) (DataSet, error) {
	if len(ds) == 0 {
		return nil, ErrEmptyDataSet
	}
	if len(p) != m.NumParams() {
		return nil, invalidf("fit: %s takes %d parameters, got %d", m.Name(), m.NumParams(), len(p))
	}

	k := f.K
	if k <= 0 {
		k = DefaultOutlierK
	}
	scale := f.Scale
	if scale <= 0 {
		scale = MeanUncertainty(ds)
	}
	limit := k * scale

	out := make(DataSet, 0, len(ds))
	for _, s := range ds {
		if math.Abs(s.Y-m.Eval(p, s.X)) < limit {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyDataSet
	}
	return out, nil
}

// MeanUncertainty is the reference scale used by ResidualFilter.
func MeanUncertainty(ds DataSet) float64 {
	if len(ds) == 0 {
		return 0
	}
	return stat.Mean(ds.Errs(), nil)
}

// BandFilter keeps samples whose X and Y both lie within the band
// mean ± K·σ of their axis, σ being the population standard deviation.
// The band edges are inclusive. The model is not consulted.
type BandFilter struct {
	K float64
}

// Band is one axis' acceptance interval.
type Band struct {
	Lower, Upper float64
}

func (b Band) Contains(v float64) bool { return v >= b.Lower && v <= b.Upper }

func (f BandFilter) Bands(ds DataSet) (x, y Band) {
	k := f.K
	if k <= 0 {
		k = DefaultOutlierK
	}
	mx, sx := stat.PopMeanStdDev(ds.Xs(), nil)
	my, sy := stat.PopMeanStdDev(ds.Ys(), nil)
	return Band{mx - k*sx, mx + k*sx}, Band{my - k*sy, my + k*sy}
}

func (f BandFilter) Apply(ds DataSet, _ Model, _ Params) (DataSet, error) {
	if len(ds) == 0 {
		return nil, ErrEmptyDataSet
	}
	bx, by := f.Bands(ds)

	out := make(DataSet, 0, len(ds))
	for _, s := range ds {
		if bx.Contains(s.X) && by.Contains(s.Y) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyDataSet
	}
	return out, nil
}
