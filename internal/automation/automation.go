package automation

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/physfit/internal/app"
	"github.com/san-kum/physfit/internal/config"
	"github.com/san-kum/physfit/internal/fit"
	"github.com/san-kum/physfit/internal/optim"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run in a scenario
type ScenarioStep struct {
	Experiment string               `yaml:"experiment"`
	Preset     string               `yaml:"preset"`
	Files      []string             `yaml:"files"`
	Bounce     *config.BounceConfig `yaml:"bounce"`
	Save       bool                 `yaml:"save"`
}

// StepResult is the outcome of one step. Run is nil for bounce steps.
type StepResult struct {
	Step       int
	Experiment string
	Run        *app.Run
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Mark(errors.Wrapf(err, "scenario %s", path), fit.ErrMissingResource)
		}
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", path)
	}
	if len(scenario.Steps) == 0 {
		return nil, errors.Mark(errors.Newf("scenario %s has no steps", path), fit.ErrInvalidInput)
	}

	return &scenario, nil
}

// RunScenario executes all steps in order on top of base, stopping at the
// first failing step. Steps only write to env.Store when they ask to save.
func RunScenario(ctx context.Context, env app.Env, base *config.Config, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if env.Out != nil {
			fmt.Fprintf(env.Out, "Running step %d/%d: %s\n", i+1, len(scenario.Steps), step.Experiment)
		}

		cfg := *base
		if step.Preset != "" && !config.Apply(&cfg, step.Experiment, step.Preset) {
			return results, errors.Mark(errors.Newf("step %d: unknown preset %s", i+1, step.Preset), fit.ErrInvalidInput)
		}

		stepEnv := env
		if !step.Save {
			stepEnv.Store = nil
		}

		result := StepResult{Step: i + 1, Experiment: step.Experiment}
		var err error
		switch step.Experiment {
		case "bounce":
			in := cfg.Bounce
			if step.Bounce != nil {
				in = *step.Bounce
			}
			_, err = app.RunBounce(ctx, stepEnv, in)
		case "decay":
			if len(step.Files) > 0 {
				cfg.Decay.Files = step.Files
			}
			result.Run, err = app.RunDecay(ctx, stepEnv, cfg.Decay)
		case "tunnel":
			if len(step.Files) > 0 {
				cfg.Tunnel.File = step.Files[0]
			}
			result.Run, err = app.RunTunnel(ctx, stepEnv, cfg.Tunnel)
		default:
			err = errors.Mark(errors.Newf("unknown experiment: %s", step.Experiment), fit.ErrInvalidInput)
		}
		if err != nil {
			return results, errors.Wrapf(err, "step %d", i+1)
		}

		results = append(results, result)
	}

	return results, nil
}

// ParameterSweep refits one experiment across a range of outlier
// thresholds
type ParameterSweep struct {
	Experiment string
	KMin       float64
	KMax       float64
	NumSteps   int
}

// SweepResult holds one refit of a sweep
type SweepResult struct {
	K                 float64
	Params            fit.Params
	ReducedChiSquared float64
	Samples           int
	Excluded          int
	Converged         bool
}

// RunSweep executes a parameter sweep with reports and plots discarded
func RunSweep(ctx context.Context, env app.Env, base *config.Config, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 1 || !(sweep.KMin > 0) || sweep.KMax < sweep.KMin {
		return nil, errors.Mark(errors.Newf("sweep: bad range [%g, %g] in %d steps", sweep.KMin, sweep.KMax, sweep.NumSteps), fit.ErrInvalidInput)
	}

	cfg := *base
	switch sweep.Experiment {
	case "decay":
		files, err := app.DecayFiles(env, cfg.Decay)
		if err != nil {
			return nil, err
		}
		cfg.Decay.Files = files
	case "tunnel":
		path, err := app.TunnelFile(env, cfg.Tunnel)
		if err != nil {
			return nil, err
		}
		cfg.Tunnel.File = path
	default:
		return nil, errors.Mark(errors.Newf("sweep: experiment %s has no outlier threshold", sweep.Experiment), fit.ErrInvalidInput)
	}

	quiet := env
	quiet.Out = nil
	quiet.Sink = nil
	quiet.Store = nil
	quiet.Diagnostics = false

	results := make([]SweepResult, 0, sweep.NumSteps)
	for _, k := range optim.Linspace(sweep.KMin, sweep.KMax, sweep.NumSteps) {
		var run *app.Run
		var err error
		if sweep.Experiment == "decay" {
			dc := cfg.Decay
			dc.OutlierK = k
			run, err = app.RunDecay(ctx, quiet, dc)
		} else {
			tc := cfg.Tunnel
			tc.OutlierK = k
			run, err = app.RunTunnel(ctx, quiet, tc)
		}
		if err != nil {
			return results, errors.Wrapf(err, "k=%g", k)
		}

		results = append(results, SweepResult{
			K:                 k,
			Params:            run.Result.Params,
			ReducedChiSquared: run.Result.ReducedChiSquared,
			Samples:           run.Result.SampleCount,
			Excluded:          run.Excluded,
			Converged:         run.Result.Converged,
		})
	}

	return results, nil
}

// WriteSweep renders sweep results as a table.
func WriteSweep(w io.Writer, results []SweepResult) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"K", "PARAMS", "RED CHI2", "SAMPLES", "EXCLUDED", "CONVERGED"})
	for _, r := range results {
		params := make([]string, len(r.Params))
		for i, p := range r.Params {
			params[i] = strconv.FormatFloat(p, 'g', 5, 64)
		}
		table.Append([]string{
			strconv.FormatFloat(r.K, 'f', 2, 64),
			strings.Join(params, " "),
			strconv.FormatFloat(r.ReducedChiSquared, 'f', 2, 64),
			strconv.Itoa(r.Samples),
			strconv.Itoa(r.Excluded),
			strconv.FormatBool(r.Converged),
		})
	}
	table.Render()
}
