package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/physfit/internal/fit"
	"github.com/san-kum/physfit/internal/physics"
)

const (
	DefaultOutlierK       = fit.DefaultOutlierK
	DefaultDecayTolerance = 1e-4
	DefaultDecayMaxIter   = 5000
	DefaultTunnelStep     = 0.0001
	DefaultTunnelTol      = 0.00001
	DefaultPlotWidth      = 800
	DefaultPlotHeight     = 600
)

type Config struct {
	DataDir string       `yaml:"data_dir"`
	Plot    PlotConfig   `yaml:"plot"`
	Bounce  BounceConfig `yaml:"bounce"`
	Decay   DecayConfig  `yaml:"decay"`
	Tunnel  TunnelConfig `yaml:"tunnel"`
}

type PlotConfig struct {
	Terminal   bool    `yaml:"terminal"`
	SVG        string  `yaml:"svg"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Scale      float64 `yaml:"scale"`
	TermWidth  int     `yaml:"term_width"`
	TermHeight int     `yaml:"term_height"`
}

// BounceConfig answers the bounce prompts. Nil values are asked for.
type BounceConfig struct {
	H0   *float64 `yaml:"h0,omitempty"`
	HMin *float64 `yaml:"hmin,omitempty"`
	G    *float64 `yaml:"g,omitempty"`
	Eta  *float64 `yaml:"eta,omitempty"`
}

// Float returns a pointer to v for the optional fields of BounceConfig.
func Float(v float64) *float64 { return &v }

type DecayConfig struct {
	Files         []string  `yaml:"files"`
	SkipHeader    int       `yaml:"skip_header"`
	TimeScale     float64   `yaml:"time_scale"`
	ActivityScale float64   `yaml:"activity_scale"`
	N0            float64   `yaml:"n0"`
	Initial       []float64 `yaml:"initial"`
	OutlierK      float64   `yaml:"outlier_k"`
	Tolerance     float64   `yaml:"tolerance"`
	MaxIter       int       `yaml:"max_iter"`
}

type TunnelConfig struct {
	File          string  `yaml:"file"`
	Initial       float64 `yaml:"initial"`
	Step          float64 `yaml:"step"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxIter       int     `yaml:"max_iter"`
	OutlierK      float64 `yaml:"outlier_k"`
	BarrierHeight float64 `yaml:"barrier_height"`
	LayerSpacing  float64 `yaml:"layer_spacing"`
	// A scan of more than one point picks the starting thickness from a
	// grid over [ScanMin, ScanMax].
	ScanMin    float64 `yaml:"scan_min"`
	ScanMax    float64 `yaml:"scan_max"`
	ScanPoints int     `yaml:"scan_points"`
}

func DefaultConfig() *Config {
	barrier := physics.NewBarrier()
	return &Config{
		DataDir: ".physfit",
		Plot: PlotConfig{
			Terminal:   true,
			Width:      DefaultPlotWidth,
			Height:     DefaultPlotHeight,
			Scale:      1,
			TermWidth:  80,
			TermHeight: 15,
		},
		Decay: DecayConfig{
			SkipHeader:    1,
			TimeScale:     physics.SecondsPerHour,
			ActivityScale: physics.BqPerTBq,
			N0:            physics.NewDecayChain().N0,
			Initial:       physics.DefaultDecayConstants(),
			OutlierK:      DefaultOutlierK,
			Tolerance:     DefaultDecayTolerance,
			MaxIter:       DefaultDecayMaxIter,
		},
		Tunnel: TunnelConfig{
			Initial:       physics.DefaultThickness,
			Step:          DefaultTunnelStep,
			Tolerance:     DefaultTunnelTol,
			MaxIter:       fit.DefaultClimbMaxIter,
			OutlierK:      DefaultOutlierK,
			BarrierHeight: barrier.Height,
			LayerSpacing:  barrier.LayerSpacing,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto overlays the file at path onto cfg. Keys missing from the file
// keep their current values.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Mark(errors.Wrapf(err, "config %s", path), fit.ErrMissingResource)
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrapf(err, "config %s", path)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case len(c.Decay.Initial) != 2:
		return errors.Mark(errors.Newf("decay: initial needs 2 decay constants, got %d", len(c.Decay.Initial)), fit.ErrInvalidInput)
	case c.Decay.OutlierK <= 0 || c.Tunnel.OutlierK <= 0:
		return errors.Mark(errors.New("outlier_k must be positive"), fit.ErrInvalidInput)
	case c.Decay.Tolerance <= 0 || c.Tunnel.Tolerance <= 0:
		return errors.Mark(errors.New("tolerance must be positive"), fit.ErrInvalidInput)
	case c.Tunnel.Step <= 0:
		return errors.Mark(errors.Newf("tunnel: step %g must be positive", c.Tunnel.Step), fit.ErrInvalidInput)
	case c.Tunnel.Initial <= 0:
		return errors.Mark(errors.Newf("tunnel: initial thickness %g must be positive", c.Tunnel.Initial), fit.ErrInvalidInput)
	case c.Tunnel.ScanPoints > 1 && !(c.Tunnel.ScanMin > 0 && c.Tunnel.ScanMin < c.Tunnel.ScanMax):
		return errors.Mark(errors.Newf("tunnel: scan range [%g, %g] must be positive and increasing",
			c.Tunnel.ScanMin, c.Tunnel.ScanMax), fit.ErrInvalidInput)
	}
	return nil
}

// Chain builds the decay model with any configured overrides.
func (d DecayConfig) Chain() (*physics.DecayChain, error) {
	chain := physics.NewDecayChain()
	if d.N0 != 0 {
		if err := chain.SetParam("n0", d.N0); err != nil {
			return nil, err
		}
	}
	return chain, nil
}

// Barrier builds the tunnelling model with any configured overrides.
func (t TunnelConfig) Barrier() (*physics.Barrier, error) {
	b := physics.NewBarrier()
	overrides := map[string]float64{
		"height":        t.BarrierHeight,
		"layer_spacing": t.LayerSpacing,
	}
	for name, v := range overrides {
		if v == 0 {
			continue
		}
		if err := b.SetParam(name, v); err != nil {
			return nil, err
		}
	}
	return b, nil
}
