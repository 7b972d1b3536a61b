package experiment

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/san-kum/physfit/internal/fit"
	"github.com/san-kum/physfit/internal/physics"
)

// Fitted describes an experiment whose runs can be rebuilt from saved
// parameters and settings.
type Fitted struct {
	Name       string
	Title      string
	XLabel     string
	YLabel     string
	ParamNames []string
	// XScale and YScale convert fit units to display units.
	XScale, YScale float64
	New            func(settings map[string]float64) (fit.Model, error)
}

type Registry struct {
	experiments map[string]Fitted
}

func NewRegistry() *Registry {
	r := &Registry{experiments: make(map[string]Fitted)}

	r.experiments["decay"] = Fitted{
		Name:       "decay",
		Title:      "Activity of rubidium 79",
		XLabel:     "time (hours)",
		YLabel:     "activity (TBq)",
		ParamNames: []string{"lambda_rb", "lambda_sr"},
		XScale:     1 / physics.SecondsPerHour,
		YScale:     1 / physics.BqPerTBq,
		New: func(settings map[string]float64) (fit.Model, error) {
			chain := physics.NewDecayChain()
			if n0, ok := settings["n0"]; ok {
				if err := chain.SetParam("n0", n0); err != nil {
					return nil, err
				}
			}
			return chain, nil
		},
	}
	r.experiments["tunnel"] = Fitted{
		Name:       "tunnel",
		Title:      "Transmission coefficient against energy",
		XLabel:     "energy (eV)",
		YLabel:     "transmission coefficient",
		ParamNames: []string{"thickness"},
		New: func(settings map[string]float64) (fit.Model, error) {
			b := physics.NewBarrier()
			for _, name := range []string{"height", "layer_spacing"} {
				v, ok := settings[name]
				if !ok {
					continue
				}
				if err := b.SetParam(name, v); err != nil {
					return nil, err
				}
			}
			return b, nil
		},
	}

	return r
}

func (r *Registry) Get(name string) (Fitted, error) {
	e, ok := r.experiments[name]
	if !ok {
		return Fitted{}, errors.Mark(errors.Newf("unknown experiment: %s", name), fit.ErrInvalidInput)
	}
	return e, nil
}

// Model rebuilds the model of a saved run.
func (r *Registry) Model(name string, settings map[string]float64) (fit.Model, error) {
	e, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return e.New(settings)
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.experiments))
	for name := range r.experiments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
