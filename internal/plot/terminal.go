package plot

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/guptarohit/asciigraph"
)

var errNoData = errors.New("no data to plot")

// Terminal draws observed and fitted values as an ASCII chart, one column
// per sample in x order.
type Terminal struct {
	W      io.Writer
	Height int
	Width  int
}

func (t Terminal) Render(fig Figure) error {
	if len(fig.Points) == 0 {
		return errNoData
	}

	height := t.Height
	if height <= 0 {
		height = 15
	}
	width := t.Width
	if width <= 0 {
		width = 80
	}

	observed := make([]float64, len(fig.Points))
	for i, p := range fig.Points {
		observed[i] = p.Y
	}
	series := [][]float64{observed}
	if len(fig.Curve) > 1 {
		fitted := make([]float64, len(fig.Points))
		for i, p := range fig.Points {
			fitted[i] = interpolate(fig.Curve, p.X)
		}
		series = append(series, fitted)
	}

	caption := fig.Title
	if fig.YLabel != "" || fig.XLabel != "" {
		caption = fmt.Sprintf("%s: %s against %s (red observed, blue fitted)", fig.Title, fig.YLabel, fig.XLabel)
	}

	graph := asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Blue),
	)
	_, err := fmt.Fprintf(t.W, "%s\n\n", graph)
	return err
}

// interpolate evaluates a curve sorted by X at x, clamping at the ends.
func interpolate(curve []XY, x float64) float64 {
	if x <= curve[0].X {
		return curve[0].Y
	}
	last := curve[len(curve)-1]
	if x >= last.X {
		return last.Y
	}
	for i := 1; i < len(curve); i++ {
		if x <= curve[i].X {
			a, b := curve[i-1], curve[i]
			if b.X == a.X {
				return b.Y
			}
			return a.Y + (b.Y-a.Y)*(x-a.X)/(b.X-a.X)
		}
	}
	return last.Y
}
