package plot

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/physfit/internal/fit"
)

var double = fit.ModelFunc{N: 1, F: func(p fit.Params, x float64) float64 { return p[0] * x }}

func testFigure() Figure {
	ds := fit.DataSet{{X: 1, Y: 2, Err: 0.1}, {X: 2, Y: 4.2, Err: 0.2}, {X: 3, Y: 5.9, Err: 0.1}}
	return FromFit(Axes{Title: "t", XLabel: "x", YLabel: "y", YScale: 10}, ds, double, fit.Params{2})
}

func TestFromFit(t *testing.T) {
	fig := testFigure()

	if len(fig.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(fig.Points))
	}
	if fig.Points[1].Y != 42 || fig.Points[1].Err != 2 {
		t.Errorf("y scale not applied: %+v", fig.Points[1])
	}
	if len(fig.Curve) != curveSamples {
		t.Fatalf("expected %d curve samples, got %d", curveSamples, len(fig.Curve))
	}
	first, last := fig.Curve[0], fig.Curve[len(fig.Curve)-1]
	if first.X != 1 || last.X != 3 || last.Y != 60 {
		t.Errorf("unexpected curve ends %+v %+v", first, last)
	}
}

func TestFromFitEmpty(t *testing.T) {
	fig := FromFit(Axes{Title: "empty"}, nil, double, fit.Params{1})
	if len(fig.Points) != 0 || len(fig.Curve) != 0 {
		t.Error("expected empty figure")
	}
}

func TestInterpolate(t *testing.T) {
	curve := []XY{{0, 0}, {1, 10}, {2, 30}}
	tests := []struct{ x, want float64 }{{-1, 0}, {0.5, 5}, {1.5, 20}, {5, 30}}
	for _, tt := range tests {
		if got := interpolate(curve, tt.x); got != tt.want {
			t.Errorf("interpolate(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	if err := (Terminal{W: &buf, Height: 5, Width: 20}).Render(testFigure()); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "y against x") {
		t.Errorf("expected caption in output:\n%s", buf.String())
	}
}

func TestTerminalEmpty(t *testing.T) {
	if err := (Terminal{W: &bytes.Buffer{}}).Render(Figure{}); !errors.Is(err, errNoData) {
		t.Errorf("expected no data error, got %v", err)
	}
}

func TestSVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fit.svg")
	sink := SVG{Path: path, Width: 400, Height: 300, Scale: 2}

	if err := sink.Render(testFigure()); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	doc := string(data)

	if !strings.Contains(doc, `width="800" height="600"`) {
		t.Error("scale not applied to image size")
	}
	if strings.Count(doc, "<circle") != 3 {
		t.Errorf("expected 3 markers, got %d", strings.Count(doc, "<circle"))
	}
	if !strings.Contains(doc, "<path") {
		t.Error("fitted curve missing")
	}
}

func TestSVGErrors(t *testing.T) {
	if err := (SVG{}).Render(testFigure()); err == nil {
		t.Error("expected error without an output path")
	}
	path := filepath.Join(t.TempDir(), "empty.svg")
	if err := (SVG{Path: path}).Render(Figure{}); !errors.Is(err, errNoData) {
		t.Errorf("expected no data error, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("empty figure should not write a file")
	}
}

func TestSVGEscapesLabels(t *testing.T) {
	fig := testFigure()
	fig.Title = "a<b & c"
	doc := FigureToSVG(fig, 100, 100)
	if !strings.Contains(doc, "a&lt;b &amp; c") {
		t.Error("title not escaped")
	}
}

type failSink struct{ calls *int }

func (f failSink) Render(Figure) error {
	*f.calls++
	return errors.New("fail")
}

func TestMultiStopsAtError(t *testing.T) {
	calls := 0
	m := Multi{Discard{}, failSink{&calls}, failSink{&calls}}
	if err := m.Render(Figure{}); err == nil {
		t.Error("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
