package config

import "sort"

// Presets holds named overrides per experiment, applied on top of
// DefaultConfig.
var Presets = map[string]map[string]func(*Config){
	"bounce": {
		"table_tennis": func(c *Config) {
			c.Bounce = BounceConfig{H0: Float(1.0), HMin: Float(0.05), G: Float(9.81), Eta: Float(0.75)}
		},
		"superball": func(c *Config) {
			c.Bounce = BounceConfig{H0: Float(2.0), HMin: Float(0.1), G: Float(9.81), Eta: Float(0.9)}
		},
		"moon": func(c *Config) {
			c.Bounce = BounceConfig{H0: Float(2.0), HMin: Float(0.1), G: Float(1.62), Eta: Float(0.75)}
		},
	},
	"decay": {
		"rb79": func(c *Config) {},
		"strict": func(c *Config) {
			c.Decay.OutlierK = 2
			c.Decay.Tolerance = 1e-8
			c.Decay.MaxIter = 20000
		},
		"loose": func(c *Config) {
			c.Decay.OutlierK = 5
		},
	},
	"tunnel": {
		"boron_nitride": func(c *Config) {},
		"coarse": func(c *Config) {
			c.Tunnel.Step = 0.001
			c.Tunnel.Tolerance = 0.0001
		},
		"scan": func(c *Config) {
			c.Tunnel.ScanMin = 2
			c.Tunnel.ScanMax = 10
			c.Tunnel.ScanPoints = 81
		},
		"fine": func(c *Config) {
			c.Tunnel.Step = 0.00001
			c.Tunnel.Tolerance = 0.000001
		},
	},
}

// GetPreset returns DefaultConfig with the named preset applied, or nil.
func GetPreset(experiment, name string) *Config {
	presets, ok := Presets[experiment]
	if !ok {
		return nil
	}
	apply, ok := presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

// Apply modifies cfg in place with the named preset.
func Apply(cfg *Config, experiment, name string) bool {
	apply, ok := Presets[experiment][name]
	if !ok {
		return false
	}
	apply(cfg)
	return true
}

func ListPresets(experiment string) []string {
	presets, ok := Presets[experiment]
	if !ok {
		return nil
	}

	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
