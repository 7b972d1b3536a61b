package automation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/san-kum/physfit/internal/app"
	"github.com/san-kum/physfit/internal/config"
	"github.com/san-kum/physfit/internal/fit"
	"github.com/san-kum/physfit/internal/storage"
)

const transmission = `T,E,err
0.006682,0.2,0.0002005
0.007517,0.26,0.0002255
0.008481,0.32,0.0002544
0.0096,0.38,0.000288
0.010902,0.44,0.0003271
0.012427,0.5,0.0003728
0.014223,0.56,0.0004267
0.5,0.6,0.001
0.01635,0.62,0.0004905
0.018887,0.68,0.0005666
0.021938,0.74,0.0006581
0.025637,0.8,0.0007691
0.030168,0.86,0.000905
0.035784,0.92,0.0010735
0.042838,0.98,0.0012851
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "batch.yaml", `
name: coursework
steps:
  - experiment: bounce
    bounce: {h0: 10, hmin: 0.5, g: 9.81, eta: 0.7}
  - experiment: tunnel
    preset: coarse
    files: [bn.csv]
    save: true
`)

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if sc.Name != "coursework" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if sc.Steps[0].Bounce == nil || sc.Steps[0].Bounce.Eta == nil || *sc.Steps[0].Bounce.Eta != 0.7 {
		t.Errorf("bounce inputs not loaded: %+v", sc.Steps[0].Bounce)
	}
	if !sc.Steps[1].Save || sc.Steps[1].Files[0] != "bn.csv" {
		t.Errorf("tunnel step not loaded: %+v", sc.Steps[1])
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadScenario(filepath.Join(dir, "missing.yaml"))
	if !errors.Is(err, fit.ErrMissingResource) {
		t.Errorf("expected missing resource, got %v", err)
	}

	_, err = LoadScenario(writeFile(t, dir, "empty.yaml", "name: nothing\n"))
	if !errors.Is(err, fit.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "bn.csv", transmission)
	store := storage.New(filepath.Join(dir, "runs"))
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	sc := &Scenario{Steps: []ScenarioStep{
		{Experiment: "bounce", Bounce: &config.BounceConfig{H0: config.Float(10), HMin: config.Float(0.5), G: config.Float(9.81), Eta: config.Float(0.7)}},
		{Experiment: "tunnel", Files: []string{data}, Save: true},
		{Experiment: "tunnel", Preset: "coarse", Files: []string{data}},
	}}

	var out bytes.Buffer
	results, err := RunScenario(context.Background(), app.Env{Out: &out, Store: store}, config.DefaultConfig(), sc)
	if err != nil {
		t.Fatalf("scenario failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Run != nil {
		t.Error("bounce step should carry no fit")
	}
	if results[1].Run.RunID == "" {
		t.Error("saving step should have a run id")
	}
	if results[2].Run.RunID != "" {
		t.Error("non-saving step should not be saved")
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 saved run, got %d", len(runs))
	}
	if !strings.Contains(out.String(), "Running step 3/3: tunnel") {
		t.Errorf("missing progress line in %q", out.String())
	}
}

func TestRunScenarioStopsAtFailure(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{
		{Experiment: "bounce", Bounce: &config.BounceConfig{H0: config.Float(10), HMin: config.Float(0.5), G: config.Float(9.81), Eta: config.Float(0.7)}},
		{Experiment: "pendulum"},
		{Experiment: "bounce", Bounce: &config.BounceConfig{H0: config.Float(10), HMin: config.Float(0.5), G: config.Float(9.81), Eta: config.Float(0.7)}},
	}}

	results, err := RunScenario(context.Background(), app.Env{}, config.DefaultConfig(), sc)
	if !errors.Is(err, fit.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 completed step, got %d", len(results))
	}
}

func TestRunSweep(t *testing.T) {
	base := config.DefaultConfig()
	base.Tunnel.File = writeFile(t, t.TempDir(), "bn.csv", transmission)

	sweep := &ParameterSweep{Experiment: "tunnel", KMin: 3, KMax: 4, NumSteps: 2}
	results, err := RunSweep(context.Background(), app.Env{}, base, sweep)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Samples != 14 || results[0].Excluded != 1 {
		t.Errorf("k=3 should exclude the outlier, got %+v", results[0])
	}
	if results[1].Samples != 15 || results[1].Excluded != 0 {
		t.Errorf("k=4 should keep the outlier, got %+v", results[1])
	}
	var out bytes.Buffer
	WriteSweep(&out, results)
	if !strings.Contains(out.String(), "3.00") || !strings.Contains(out.String(), "EXCLUDED") {
		t.Errorf("unexpected sweep table %q", out.String())
	}
	if results[1].ReducedChiSquared <= results[0].ReducedChiSquared {
		t.Errorf("keeping the outlier should worsen the fit: %g <= %g",
			results[1].ReducedChiSquared, results[0].ReducedChiSquared)
	}
}

func TestRunSweepAsksForFileOnce(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bn.csv", transmission)
	var out bytes.Buffer
	env := app.Env{In: strings.NewReader(path + "\n"), Out: &out}

	sweep := &ParameterSweep{Experiment: "tunnel", KMin: 3, KMax: 4, NumSteps: 3}
	results, err := RunSweep(context.Background(), env, config.DefaultConfig(), sweep)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if n := strings.Count(out.String(), "What is the filepath of the data?"); n != 1 {
		t.Errorf("expected 1 prompt, got %d", n)
	}
}

func TestRunSweepInvalid(t *testing.T) {
	_, err := RunSweep(context.Background(), app.Env{}, config.DefaultConfig(), &ParameterSweep{Experiment: "bounce", KMin: 1, KMax: 2, NumSteps: 2})
	if !errors.Is(err, fit.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}

	_, err = RunSweep(context.Background(), app.Env{}, config.DefaultConfig(), &ParameterSweep{Experiment: "tunnel", KMin: 2, KMax: 1, NumSteps: 2})
	if !errors.Is(err, fit.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}
