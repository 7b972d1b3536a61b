package app

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/san-kum/physfit/internal/config"
	"github.com/san-kum/physfit/internal/fit"
	"github.com/san-kum/physfit/internal/ingest"
	"github.com/san-kum/physfit/internal/optim"
	"github.com/san-kum/physfit/internal/plot"
	"github.com/san-kum/physfit/internal/report"
	"github.com/san-kum/physfit/internal/storage"
)

// TunnelLayout reads transmission, energy and error columns. Header and
// text rows fail to parse and are dropped with the rest.
func TunnelLayout() ingest.Layout {
	return ingest.Layout{
		Comment:        '%',
		Delimiter:      ',',
		XCol:           1,
		YCol:           0,
		ErrCol:         2,
		RejectNegative: true,
	}
}

// TunnelFile returns the configured transmission file or asks for one.
func TunnelFile(env Env, cfg config.TunnelConfig) (string, error) {
	if cfg.File != "" {
		return cfg.File, nil
	}
	return env.withDefaults().Asker.Path("What is the filepath of the data?")
}

// RunTunnel estimates the boron nitride film thickness from transmission
// against electron energy with a single parameter hill-climb.
func RunTunnel(ctx context.Context, env Env, cfg config.TunnelConfig) (*Run, error) {
	env = env.withDefaults()

	path, err := TunnelFile(env, cfg)
	if err != nil {
		return nil, err
	}

	ds, stats, err := ingest.ReadFile(path, TunnelLayout())
	if err != nil {
		return nil, err
	}
	logIngest(env, []string{path}, stats)

	barrier, err := cfg.Barrier()
	if err != nil {
		return nil, errors.Mark(err, fit.ErrInvalidInput)
	}

	var minimizer fit.Minimizer = fit.HillClimb{Step: cfg.Step, Tolerance: cfg.Tolerance, MaxIter: cfg.MaxIter}
	if cfg.ScanPoints > 1 {
		minimizer = optim.Seeded{
			Seed:   optim.NewGridSearch([][]float64{optim.Linspace(cfg.ScanMin, cfg.ScanMax, cfg.ScanPoints)}),
			Refine: minimizer,
		}
	}
	pipeline := fit.Pipeline{
		Model:     barrier,
		Filter:    fit.BandFilter{K: cfg.OutlierK},
		Minimizer: minimizer,
	}
	kept, res, err := fitted(ctx, env, pipeline, ds, fit.Params{cfg.Initial})
	if err != nil {
		return nil, err
	}

	run := &Run{Data: kept, Result: res, Stats: stats, Excluded: len(ds) - len(kept)}
	d := res.Params[0]
	layers := barrier.Layers(d)

	rep := report.Report{
		Title: "Boron nitride film thickness",
		Fields: []report.Field{
			{Label: "thickness of the Boron nitride sample", Value: d, Unit: "Å", Format: report.Decimals(3)},
			{Label: "number of layers", Value: layers, Unit: "layer(s)", Format: report.Decimals(0)},
		},
	}
	rep.AddResult(res)
	noteData(&rep, stats, run.Excluded)
	if env.Diagnostics {
		diagnose(&rep, kept, barrier, res.Params)
	}

	if env.Store != nil {
		meta := storage.NewRunMetadata("tunnel", barrier, res)
		meta.Inputs = []string{path}
		meta.ParamNames = []string{"thickness"}
		meta.Derived = map[string]float64{"layers": layers}
		meta.Settings = map[string]float64{
			"height":        barrier.Height,
			"layer_spacing": barrier.LayerSpacing,
			"step":          cfg.Step,
			"tolerance":     cfg.Tolerance,
			"outlier_k":     cfg.OutlierK,
		}
		if cfg.ScanPoints > 1 {
			meta.Settings["scan_min"] = cfg.ScanMin
			meta.Settings["scan_max"] = cfg.ScanMax
			meta.Settings["scan_points"] = float64(cfg.ScanPoints)
		}
		if run.RunID, err = env.Store.Save(meta, kept, fit.Predict(res.Params, kept, barrier)); err != nil {
			return nil, errors.Wrap(err, "save run")
		}
		rep.Notes = append(rep.Notes, "saved as "+run.RunID)
	}
	run.Report = rep

	axes, err := axesFor(env, "tunnel")
	if err != nil {
		return nil, err
	}
	return run, finish(env, run, plot.FromFit(axes, kept, barrier, res.Params))
}
