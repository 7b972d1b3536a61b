package app

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/san-kum/physfit/internal/config"
	"github.com/san-kum/physfit/internal/fit"
	"github.com/san-kum/physfit/internal/ingest"
	"github.com/san-kum/physfit/internal/physics"
	"github.com/san-kum/physfit/internal/plot"
	"github.com/san-kum/physfit/internal/report"
	"github.com/san-kum/physfit/internal/storage"
)

// decayFiles is how many measurement files are asked for when none are
// configured.
const decayFiles = 2

// DecayFiles returns the configured measurement files, asking for them
// when there are none.
func DecayFiles(env Env, cfg config.DecayConfig) ([]string, error) {
	if len(cfg.Files) > 0 {
		return append([]string(nil), cfg.Files...), nil
	}
	env = env.withDefaults()
	files := make([]string, 0, decayFiles)
	for i := 0; i < decayFiles; i++ {
		path, err := env.Asker.Path(fmt.Sprintf("What is the filepath of data file %d?", i+1))
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

// RunDecay fits the strontium 79 to rubidium 79 chain to the activity
// measurements and reports both decay constants and half-lives.
func RunDecay(ctx context.Context, env Env, cfg config.DecayConfig) (*Run, error) {
	env = env.withDefaults()

	files, err := DecayFiles(env, cfg)
	if err != nil {
		return nil, err
	}

	layout := ingest.DefaultLayout()
	layout.SkipHeader = cfg.SkipHeader
	layout.XScale = cfg.TimeScale
	layout.YScale = cfg.ActivityScale
	layout.ErrScale = cfg.ActivityScale

	ds, stats, err := ingest.ReadFiles(files, layout)
	if err != nil {
		return nil, err
	}
	logIngest(env, files, stats)

	chain, err := cfg.Chain()
	if err != nil {
		return nil, errors.Mark(err, fit.ErrInvalidInput)
	}
	init := fit.Params(cfg.Initial).Clone()
	if err := chain.Validate(init); err != nil {
		return nil, errors.Mark(err, fit.ErrInvalidInput)
	}

	pipeline := fit.Pipeline{
		Model:     chain,
		Filter:    fit.ResidualFilter{K: cfg.OutlierK},
		Minimizer: fit.Simplex{Tolerance: cfg.Tolerance, MaxIter: cfg.MaxIter},
	}
	kept, res, err := fitted(ctx, env, pipeline, ds, init)
	if err != nil {
		return nil, err
	}

	run := &Run{Data: kept, Result: res, Stats: stats, Excluded: len(ds) - len(kept)}
	lambdaRb, lambdaSr := res.Params[0], res.Params[1]
	halfRb := physics.HalfLife(lambdaRb) / physics.SecondsPerMinute
	halfSr := physics.HalfLife(lambdaSr) / physics.SecondsPerMinute

	rep := report.Report{
		Title: "Radioactive decay of strontium 79 to rubidium 79",
		Fields: []report.Field{
			{Label: "decay constant for Rubidium 79", Value: lambdaRb, Unit: "per second", Format: report.Decimals(6)},
			{Label: "decay constant for Strontium 79", Value: lambdaSr, Unit: "per second", Format: report.SigFigs(3)},
			{Label: "half life of Rubidium 79", Value: halfRb, Unit: "minutes", Format: report.Decimals(1)},
			{Label: "half life of Strontium 79", Value: halfSr, Unit: "minutes", Format: report.Decimals(2)},
		},
	}
	rep.AddResult(res)
	if err := chain.Validate(res.Params); err != nil {
		rep.Warn("The fitted decay constants are not physical: %v", err)
	}
	noteData(&rep, stats, run.Excluded)
	if env.Diagnostics {
		diagnose(&rep, kept, chain, res.Params)
	}

	if env.Store != nil {
		meta := storage.NewRunMetadata("decay", chain, res)
		meta.Inputs = files
		meta.ParamNames = []string{"lambda_rb", "lambda_sr"}
		meta.Derived = map[string]float64{
			"half_life_rb_minutes": halfRb,
			"half_life_sr_minutes": halfSr,
		}
		meta.Settings = map[string]float64{
			"n0":             chain.N0,
			"outlier_k":      cfg.OutlierK,
			"tolerance":      cfg.Tolerance,
			"time_scale":     cfg.TimeScale,
			"activity_scale": cfg.ActivityScale,
		}
		if run.RunID, err = env.Store.Save(meta, kept, fit.Predict(res.Params, kept, chain)); err != nil {
			return nil, errors.Wrap(err, "save run")
		}
		rep.Notes = append(rep.Notes, "saved as "+run.RunID)
	}
	run.Report = rep

	axes, err := axesFor(env, "decay")
	if err != nil {
		return nil, err
	}
	return run, finish(env, run, plot.FromFit(axes, kept, chain, res.Params))
}
