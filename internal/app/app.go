// Package app wires acquisition, ingestion, fitting, reporting, plotting
// and storage into the entry points behind each command.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/san-kum/physfit/internal/analysis"
	"github.com/san-kum/physfit/internal/experiment"
	"github.com/san-kum/physfit/internal/fit"
	"github.com/san-kum/physfit/internal/ingest"
	"github.com/san-kum/physfit/internal/plot"
	"github.com/san-kum/physfit/internal/prompt"
	"github.com/san-kum/physfit/internal/report"
	"github.com/san-kum/physfit/internal/storage"
)

// Env holds the collaborators a run talks to. Zero fields get harmless
// defaults: no input, discarded output and plots, no logging, no saving.
type Env struct {
	In       io.Reader
	Out      io.Writer
	Log      *zap.Logger
	Asker    prompt.Asker
	Sink     plot.Sink
	Store    *storage.Store
	Registry *experiment.Registry
	Style    report.Style
	// Diagnostics adds a residual summary to every fit report.
	Diagnostics bool
}

func (e Env) withDefaults() Env {
	if e.In == nil {
		e.In = strings.NewReader("")
	}
	if e.Out == nil {
		e.Out = io.Discard
	}
	if e.Log == nil {
		e.Log = zap.NewNop()
	}
	if e.Asker == nil {
		e.Asker = prompt.New(e.In, e.Out)
	}
	if e.Sink == nil {
		e.Sink = plot.Discard{}
	}
	if e.Registry == nil {
		e.Registry = experiment.NewRegistry()
	}
	return e
}

// Run is the outcome of one fitted experiment.
type Run struct {
	Report report.Report
	// Data is the filtered data set the fit saw.
	Data   fit.DataSet
	Result *fit.Result
	Stats  ingest.Stats
	// Excluded counts the samples removed as outliers.
	Excluded int
	// RunID is set when the run was saved.
	RunID string
}

// fitted runs the pipeline and logs what it dropped. Non-convergence is
// logged and swallowed; the result carries the flag.
func fitted(ctx context.Context, env Env, p fit.Pipeline, ds fit.DataSet, init fit.Params) (fit.DataSet, *fit.Result, error) {
	kept, res, err := p.Run(ctx, ds, init)
	if err != nil && !errors.Is(err, fit.ErrNonConvergence) {
		return nil, nil, err
	}
	env.Log.Debug("outliers excluded",
		zap.String("model", p.Model.Name()),
		zap.Int("samples", len(ds)),
		zap.Int("excluded", len(ds)-len(kept)))
	if err != nil {
		env.Log.Warn("fit did not converge", zap.Error(err))
	}
	env.Log.Debug("fit finished",
		zap.String("method", res.Method),
		zap.String("status", res.Status),
		zap.Int("iterations", res.Iterations),
		zap.Int("evaluations", res.Evaluations),
		zap.Float64s("params", res.Params),
		zap.Float64("reduced_chi_squared", res.ReducedChiSquared))
	return kept, res, nil
}

func logIngest(env Env, files []string, stats ingest.Stats) {
	env.Log.Debug("ingested",
		zap.Strings("files", files),
		zap.Int("rows", stats.Rows),
		zap.Int("kept", stats.Kept),
		zap.Int("dropped", stats.Dropped))
}

// noteData records ingestion and outlier counts on the report.
func noteData(rep *report.Report, stats ingest.Stats, excluded int) {
	if stats.Dropped > 0 {
		rep.Notes = append(rep.Notes, plural(stats.Dropped, "malformed row dropped", "malformed rows dropped"))
	}
	if excluded > 0 {
		rep.Notes = append(rep.Notes, plural(excluded, "outlier excluded", "outliers excluded"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func diagnose(rep *report.Report, ds fit.DataSet, m fit.Model, p fit.Params) {
	d := analysis.Summarize(fit.Residuals(p, ds, m), ds.Errs())
	rep.Notes = append(rep.Notes, d.String())
}

// finish renders the report, then hands the figure to the sink.
func finish(env Env, run *Run, fig plot.Figure) error {
	if err := report.Render(env.Out, run.Report, env.Style); err != nil {
		return err
	}
	if err := env.Sink.Render(fig); err != nil {
		return errors.Wrap(err, "plot")
	}
	return nil
}
