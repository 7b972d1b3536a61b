package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"

	"github.com/san-kum/physfit/internal/fit"
	"github.com/san-kum/physfit/internal/plot"
	"github.com/san-kum/physfit/internal/report"
	"github.com/san-kum/physfit/internal/storage"
)

var errNoStore = errors.Mark(errors.New("no run store configured"), fit.ErrMissingResource)

func axesFor(env Env, experiment string) (plot.Axes, error) {
	e, err := env.Registry.Get(experiment)
	if err != nil {
		return plot.Axes{}, err
	}
	return plot.Axes{
		Title:  e.Title,
		XLabel: e.XLabel,
		YLabel: e.YLabel,
		XScale: e.XScale,
		YScale: e.YScale,
	}, nil
}

// ListRuns writes a table of saved runs, oldest first.
func ListRuns(env Env) error {
	env = env.withDefaults()
	if env.Store == nil {
		return errNoStore
	}
	runs, err := env.Store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(env.Out, "no runs found")
		return err
	}

	table := tablewriter.NewWriter(env.Out)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"ID", "EXPERIMENT", "TIME", "PARAMS", "RED CHI2", "CONVERGED"})
	for _, run := range runs {
		table.Append([]string{
			run.ID,
			run.Experiment,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			formatParams(run),
			strconv.FormatFloat(run.ReducedChiSquared, 'f', 2, 64),
			strconv.FormatBool(run.Converged),
		})
	}
	table.Render()
	return nil
}

func formatParams(run storage.RunMetadata) string {
	parts := make([]string, len(run.Params))
	for i, v := range run.Params {
		parts[i] = paramName(run, i) + "=" + strconv.FormatFloat(v, 'g', 4, 64)
	}
	return strings.Join(parts, " ")
}

func paramName(run storage.RunMetadata, i int) string {
	if i < len(run.ParamNames) {
		return run.ParamNames[i]
	}
	return fmt.Sprintf("p%d", i)
}

// RunReport rebuilds a report from saved run metadata.
func RunReport(meta storage.RunMetadata) report.Report {
	rep := report.Report{
		Title: fmt.Sprintf("%s run %s (%s)", meta.Experiment, meta.ID, meta.Timestamp.Format("2006-01-02 15:04:05")),
	}
	for i, v := range meta.Params {
		rep.Fields = append(rep.Fields, report.Field{Label: label(paramName(meta, i)), Value: v, Format: report.SigFigs(6)})
	}

	keys := make([]string, 0, len(meta.Derived))
	for k := range meta.Derived {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rep.Fields = append(rep.Fields, report.Field{Label: label(k), Value: meta.Derived[k], Format: report.SigFigs(4)})
	}

	rep.AddResult(&fit.Result{
		Params:            meta.Params,
		ChiSquared:        meta.ChiSquared,
		ReducedChiSquared: meta.ReducedChiSquared,
		SampleCount:       meta.SampleCount,
		DegreesOfFreedom:  meta.DegreesOfFreedom,
		Iterations:        meta.Iterations,
		Method:            meta.Method,
		Status:            meta.Status,
		Converged:         meta.Converged,
	})
	if len(meta.Inputs) > 0 {
		rep.Notes = append(rep.Notes, "inputs: "+strings.Join(meta.Inputs, ", "))
	}
	return rep
}

func label(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// ShowRun prints the report of a saved run.
func ShowRun(env Env, runID string) error {
	env = env.withDefaults()
	if env.Store == nil {
		return errNoStore
	}
	meta, err := env.Store.Load(runID)
	if err != nil {
		return err
	}
	return report.Render(env.Out, RunReport(*meta), env.Style)
}

// PlotRun re-renders a saved run. The fitted curve is rebuilt from the
// model when the experiment is known and falls back to the saved
// predictions otherwise.
func PlotRun(env Env, runID string) error {
	env = env.withDefaults()
	if env.Store == nil {
		return errNoStore
	}
	meta, err := env.Store.Load(runID)
	if err != nil {
		return err
	}
	ds, predicted, err := env.Store.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(ds) == 0 {
		return errors.Wrapf(fit.ErrEmptyDataSet, "run %s", runID)
	}

	axes, axesErr := axesFor(env, meta.Experiment)
	m, modelErr := env.Registry.Model(meta.Experiment, meta.Settings)
	if axesErr == nil && modelErr == nil && len(meta.Params) == m.NumParams() {
		return env.Sink.Render(plot.FromFit(axes, ds, m, meta.Params))
	}

	fig := plot.Figure{Title: meta.Experiment + " " + meta.ID, XLabel: "x", YLabel: "y"}
	for i, s := range ds {
		fig.Points = append(fig.Points, plot.Point{X: s.X, Y: s.Y, Err: s.Err})
		fig.Curve = append(fig.Curve, plot.XY{X: s.X, Y: predicted[i]})
	}
	return env.Sink.Render(fig)
}

// ExportRun writes a saved run with its samples as JSON.
func ExportRun(env Env, runID string) error {
	env = env.withDefaults()
	if env.Store == nil {
		return errNoStore
	}
	return env.Store.Export(env.Out, runID)
}
