package config

import "sort"

var Presets = map[string]map[string]*Config{
	"lorenz": {
		"classic": {
			Attractor: "lorenz", Integrator: "rk4", Dt: 0.005, Steps: 20000,
		},
		"cockpit": {
			Attractor: "lorenz", Integrator: "rk4", Dt: 0.002, Steps: 50000,
			Emitter: EmitterConfig{Engine: "transformed", Size: 4000},
			Render:  RenderConfig{Mode: "points", Cockpit: true, Tail: 0.05, PiP: "lower-right"},
		},
		"transient": {
			Attractor: "lorenz", Integrator: "rk4", Dt: 0.005, Steps: 30000,
			Params: map[string]float64{"rho": 99.96},
			Seed:   []float64{0.1, 0, 0},
		},
	},
	"rossler": {
		"spiral": {
			Attractor: "rossler", Integrator: "rk4", Dt: 0.01, Steps: 30000,
		},
		"funnel": {
			Attractor: "rossler", Integrator: "rk4", Dt: 0.01, Steps: 30000,
			Params: map[string]float64{"c": 12.7},
		},
	},
	"aizawa": {
		"sphere": {
			Attractor: "aizawa", Integrator: "rk4", Dt: 0.01, Steps: 40000,
			Emitter: EmitterConfig{Engine: "static", Size: 40000},
		},
	},
	"thomas": {
		"labyrinth": {
			Attractor: "thomas", Integrator: "rk4", Dt: 0.05, Steps: 40000,
			Params: map[string]float64{"b": 0.19},
		},
		"restart": {
			Attractor: "thomas", Integrator: "rk4", Dt: 0.05, Steps: 40000,
			Emitter: EmitterConfig{Engine: "static", Size: 5000, RestartFull: true},
		},
	},
	"halvorsen": {
		"trefoil": {
			Attractor: "halvorsen", Integrator: "rk4", Dt: 0.005, Steps: 30000,
		},
	},
	"chen": {
		"double_scroll": {
			Attractor: "chen", Integrator: "rk4", Dt: 0.002, Steps: 40000,
			Divergence: "reseed",
		},
	},
	"dadras": {
		"wings": {
			Attractor: "dadras", Integrator: "rk4", Dt: 0.005, Steps: 30000,
			Emitter: EmitterConfig{Engine: "static", Size: 30000, StopFull: true},
		},
	},
	"hyper_rossler": {
		"projected": {
			Attractor: "hyper_rossler", Integrator: "rk4", Dt: 0.005, Steps: 40000,
		},
	},
}

// GetPreset returns a copy of the preset merged over the defaults, or nil.
func GetPreset(attractor, preset string) *Config {
	attractorPresets, ok := Presets[attractor]
	if !ok {
		return nil
	}
	p, ok := attractorPresets[preset]
	if !ok {
		return nil
	}
	return p.overDefaults()
}

func ListPresets(attractor string) []string {
	attractorPresets, ok := Presets[attractor]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(attractorPresets))
	for name := range attractorPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetAttractors lists the attractors that have presets.
func PresetAttractors() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// overDefaults fills the zero fields of a preset from DefaultConfig.
func (p *Config) overDefaults() *Config {
	cfg := DefaultConfig()
	src := p.Clone()
	cfg.Attractor = src.Attractor
	cfg.Params = src.Params
	cfg.Seed = src.Seed
	if src.Integrator != "" {
		cfg.Integrator = src.Integrator
	}
	if src.Dt != 0 {
		cfg.Dt = src.Dt
	}
	if src.Steps != 0 {
		cfg.Steps = src.Steps
	}
	if src.Divergence != "" {
		cfg.Divergence = src.Divergence
	}
	if src.Emitter.Engine != "" {
		cfg.Emitter.Engine = src.Emitter.Engine
	}
	if src.Emitter.Size != 0 {
		cfg.Emitter.Size = src.Emitter.Size
	}
	cfg.Emitter.StopFull = src.Emitter.StopFull
	cfg.Emitter.RestartFull = src.Emitter.RestartFull
	if src.Render.Mode != "" {
		cfg.Render.Mode = src.Render.Mode
	}
	if src.Render.Tail != 0 {
		cfg.Render.Tail = src.Render.Tail
	}
	if src.Render.PiP != "" {
		cfg.Render.PiP = src.Render.PiP
	}
	cfg.Render.Cockpit = src.Render.Cockpit
	cfg.Render.InvertView = src.Render.InvertView
	return cfg
}
