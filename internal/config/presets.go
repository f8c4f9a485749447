package config

import "sort"

// Presets are named starting points; each is applied on top of
// DefaultConfig.
var Presets = map[string]func(*Config){
	// the original 90 s match run, paced in real time
	"match": func(c *Config) {
		c.Source = "sinusoidal"
		c.Duration = 90
		c.MaxTicks = 10000
		c.Realtime = true
	},
	"idle": func(c *Config) {
		c.Source = "idle"
		c.Duration = 10
		c.MaxTicks = 0
	},
	"spin": func(c *Config) {
		c.Source = "constant"
		c.SourceParams = map[string]float64{"omega": 1}
		c.Duration = 20
		c.MaxTicks = 0
	},
	"strafe": func(c *Config) {
		c.Source = "step"
		c.SourceParams = map[string]float64{"at": 1, "vy": 0.8}
		c.Duration = 15
		c.MaxTicks = 0
	},
	// as fast as possible, nothing stored
	"bench": func(c *Config) {
		c.Source = "sinusoidal"
		c.Duration = 0
		c.MaxTicks = 100000
		c.Realtime = false
		c.Parallel = false
		c.Sink.Type = "discard"
		c.LogEvery = 0
	},
}

// GetPreset returns a fresh config for name, or nil if there is none.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
