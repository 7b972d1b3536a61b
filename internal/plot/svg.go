package plot

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// SVG writes the figure as a scalable image: error-barred markers and the
// fitted path on a light grid.
type SVG struct {
	Path   string
	Width  int
	Height int
	// Scale multiplies Width and Height, like a print resolution.
	Scale float64
}

func (s SVG) Render(fig Figure) error {
	if s.Path == "" {
		return errors.New("svg: no output path")
	}
	w, h := s.size()
	doc := FigureToSVG(fig, w, h)
	if doc == "" {
		return errNoData
	}
	return os.WriteFile(s.Path, []byte(doc), 0644)
}

func (s SVG) size() (int, int) {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = 800
	}
	if h <= 0 {
		h = 600
	}
	if s.Scale > 0 {
		w = int(float64(w) * s.Scale)
		h = int(float64(h) * s.Scale)
	}
	return w, h
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func figureBounds(fig Figure) bounds {
	b := bounds{minX: fig.Points[0].X, maxX: fig.Points[0].X, minY: fig.Points[0].Y, maxY: fig.Points[0].Y}
	grow := func(x, y float64) {
		if x < b.minX {
			b.minX = x
		}
		if x > b.maxX {
			b.maxX = x
		}
		if y < b.minY {
			b.minY = y
		}
		if y > b.maxY {
			b.maxY = y
		}
	}
	for _, p := range fig.Points {
		grow(p.X, p.Y-p.Err)
		grow(p.X, p.Y+p.Err)
	}
	for _, c := range fig.Curve {
		grow(c.X, c.Y)
	}

	// Add padding
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * 0.05
	b.maxX += rangeX * 0.05
	b.minY -= rangeY * 0.05
	b.maxY += rangeY * 0.05
	return b
}

// FigureToSVG renders fig at the given pixel size.
func FigureToSVG(fig Figure, width, height int) string {
	if len(fig.Points) == 0 {
		return ""
	}

	const margin = 60.0
	b := figureBounds(fig)
	plotW := float64(width) - 2*margin
	plotH := float64(height) - 2*margin
	px := func(x float64) float64 { return margin + (x-b.minX)/(b.maxX-b.minX)*plotW }
	py := func(y float64) float64 { return margin + plotH - (y-b.minY)/(b.maxY-b.minY)*plotH }

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="Arial">
<rect width="100%%" height="100%%" fill="#ffffff"/>
`, width, height, width, height))

	// dashed grid
	sb.WriteString(`<g stroke="#000000" stroke-width="0.5" stroke-dasharray="4,8">` + "\n")
	for i := 0; i <= 4; i++ {
		gx := margin + plotW*float64(i)/4
		gy := margin + plotH*float64(i)/4
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", gx, margin, gx, margin+plotH))
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", margin, gy, margin+plotW, gy))
	}
	sb.WriteString("</g>\n")

	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="16" text-anchor="middle">%s</text>`+"\n",
		float64(width)/2, margin/2, escape(fig.Title)))
	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="14" text-anchor="middle">%s</text>`+"\n",
		float64(width)/2, float64(height)-margin/4, escape(fig.XLabel)))
	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="14" text-anchor="middle" transform="rotate(-90 %.1f %.1f)">%s</text>`+"\n",
		margin/3, float64(height)/2, margin/3, float64(height)/2, escape(fig.YLabel)))

	// error bars and markers
	sb.WriteString(`<g stroke="#000000" stroke-width="1">` + "\n")
	for _, p := range fig.Points {
		x := px(p.X)
		top, bottom := py(p.Y+p.Err), py(p.Y-p.Err)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", x, top, x, bottom))
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", x-5, top, x+5, top))
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", x-5, bottom, x+5, bottom))
	}
	sb.WriteString("</g>\n")

	sb.WriteString(`<g fill="#0000ff">` + "\n")
	for _, p := range fig.Points {
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3"/>`+"\n", px(p.X), py(p.Y)))
	}
	sb.WriteString("</g>\n")

	if len(fig.Curve) > 1 {
		sb.WriteString(`<path fill="none" stroke="#ff0000" stroke-width="1.5" d="M`)
		for i, c := range fig.Curve {
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", px(c.X), py(c.Y)))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px(c.X), py(c.Y)))
			}
		}
		sb.WriteString(`"/>` + "\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
