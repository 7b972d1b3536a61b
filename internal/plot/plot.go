// Package plot hands fitted data to a rendering sink.
package plot

import (
	"github.com/san-kum/physfit/internal/fit"
)

// Point is a measured value with its error bar.
type Point struct {
	X, Y, Err float64
}

// XY is a point on the fitted curve.
type XY struct {
	X, Y float64
}

// Figure is a scatter of measurements with error bars and a fitted curve.
type Figure struct {
	Title  string
	XLabel string
	YLabel string
	Points []Point
	Curve  []XY
}

// Sink renders a figure somewhere.
type Sink interface {
	Render(fig Figure) error
}

const curveSamples = 200

// Axes carries the labels and unit scaling for a fitted figure.
type Axes struct {
	Title  string
	XLabel string
	YLabel string
	// XScale and YScale convert fit units to display units. Zero means 1.
	XScale, YScale float64
}

// FromFit builds a figure of ds with m evaluated at p over the range of ds.
func FromFit(ax Axes, ds fit.DataSet, m fit.Model, p fit.Params) Figure {
	sx, sy := unit(ax.XScale), unit(ax.YScale)
	fig := Figure{Title: ax.Title, XLabel: ax.XLabel, YLabel: ax.YLabel}
	if len(ds) == 0 {
		return fig
	}

	fig.Points = make([]Point, len(ds))
	for i, s := range ds {
		fig.Points[i] = Point{X: s.X * sx, Y: s.Y * sy, Err: s.Err * sy}
	}

	lo, hi := ds[0].X, ds[len(ds)-1].X
	n := curveSamples
	if hi == lo {
		n = 1
	}
	fig.Curve = make([]XY, n)
	for i := 0; i < n; i++ {
		x := lo
		if n > 1 {
			x = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		fig.Curve[i] = XY{X: x * sx, Y: m.Eval(p, x) * sy}
	}
	return fig
}

func unit(f float64) float64 {
	if f == 0 {
		return 1
	}
	return f
}

// Multi renders to every sink in order and stops at the first error.
type Multi []Sink

func (m Multi) Render(fig Figure) error {
	for _, s := range m {
		if err := s.Render(fig); err != nil {
			return err
		}
	}
	return nil
}

// Discard renders nothing.
type Discard struct{}

func (Discard) Render(Figure) error { return nil }
