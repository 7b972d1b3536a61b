// Package report formats fit results for the console.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/physfit/internal/fit"
)

// Format controls how a value is printed.
type Format struct {
	sig    bool
	digits int
}

// Decimals prints n digits after the decimal point.
func Decimals(n int) Format { return Format{digits: n} }

// SigFigs prints n significant figures.
func SigFigs(n int) Format { return Format{sig: true, digits: n} }

func (f Format) Apply(v float64) string {
	if f.sig {
		digits := f.digits
		if digits < 1 {
			digits = 1
		}
		return strconv.FormatFloat(v, 'g', digits, 64)
	}
	return strconv.FormatFloat(v, 'f', f.digits, 64)
}

func (f Format) String() string {
	if f.sig {
		return fmt.Sprintf("%d significant figures", f.digits)
	}
	return fmt.Sprintf("%d decimal places", f.digits)
}

// Field is one reported quantity.
type Field struct {
	Label  string
	Value  float64
	Unit   string
	Format Format
}

func (f Field) Text() string {
	v := f.Format.Apply(f.Value)
	if f.Unit == "" {
		return v
	}
	return v + " " + f.Unit
}

// Report is the summary of one run.
type Report struct {
	Title    string
	Fields   []Field
	Notes    []string
	Warnings []string
	Result   *fit.Result
}

// Warn appends a warning line.
func (r *Report) Warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// AddResult appends the goodness of fit and flags an unconverged search.
func (r *Report) AddResult(res *fit.Result) {
	r.Result = res
	if res == nil {
		return
	}
	r.Fields = append(r.Fields, Field{Label: "reduced chi squared", Value: res.ReducedChiSquared, Format: Decimals(2)})
	if !res.Converged {
		r.Warn("The desired precision cannot be obtained (%s stopped: %s).", res.Method, res.Status)
	}
}

// Style selects plain sentences or a styled panel.
type Style int

const (
	Plain Style = iota
	Styled
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffaa00"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666688"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)
)

func Render(w io.Writer, rep Report, style Style) error {
	var text string
	if style == Styled {
		text = renderStyled(rep)
	} else {
		text = renderPlain(rep)
	}
	_, err := io.WriteString(w, text)
	return err
}

func renderPlain(rep Report) string {
	var sb strings.Builder
	if rep.Title != "" {
		sb.WriteString(rep.Title)
		sb.WriteString("\n\n")
	}
	for _, f := range rep.Fields {
		fmt.Fprintf(&sb, "The value for the %s is %s.\n", f.Label, f.Text())
	}
	if res := rep.Result; res != nil {
		fmt.Fprintf(&sb, "\nfit: %s, %d samples, %d iterations, %s\n", res.Method, res.SampleCount, res.Iterations, res.Status)
	}
	for _, n := range rep.Notes {
		sb.WriteString(n)
		sb.WriteString("\n")
	}
	for _, warn := range rep.Warnings {
		sb.WriteString("warning: ")
		sb.WriteString(warn)
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderStyled(rep Report) string {
	width := 0
	for _, f := range rep.Fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}

	lines := make([]string, 0, len(rep.Fields)+len(rep.Notes)+4)
	if rep.Title != "" {
		lines = append(lines, titleStyle.Render(rep.Title), "")
	}
	for _, f := range rep.Fields {
		label := labelStyle.Render(fmt.Sprintf("%-*s", width, f.Label))
		lines = append(lines, label+"  "+valueStyle.Render(f.Text()))
	}
	if res := rep.Result; res != nil {
		lines = append(lines, "", subtleStyle.Render(fmt.Sprintf("%s · %d samples · %d iterations · %s",
			res.Method, res.SampleCount, res.Iterations, res.Status)))
	}
	for _, n := range rep.Notes {
		lines = append(lines, subtleStyle.Render(n))
	}
	for _, warn := range rep.Warnings {
		lines = append(lines, warnStyle.Render("! "+warn))
	}
	return panelStyle.Render(strings.Join(lines, "\n")) + "\n"
}
