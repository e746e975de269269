package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/attractors/internal/attractors"
	"github.com/san-kum/attractors/internal/emitter"
	"github.com/san-kum/attractors/internal/render"
	"github.com/san-kum/attractors/internal/stepper"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Attractor != "lorenz" {
		t.Errorf("expected attractor lorenz, got %s", cfg.Attractor)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Engine() != emitter.Static {
		t.Errorf("expected static engine, got %v", cfg.Engine())
	}
	if cfg.Mode() != render.Points {
		t.Errorf("expected points mode, got %v", cfg.Mode())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown attractor", func(c *Config) { c.Attractor = "henon" }},
		{"unknown param", func(c *Config) { c.Params = map[string]float64{"zeta": 1} }},
		{"unknown integrator", func(c *Config) { c.Integrator = "leapfrog" }},
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative dt", func(c *Config) { c.Dt = -0.1 }},
		{"seed dimension", func(c *Config) { c.Seed = []float64{1, 2} }},
		{"divergence", func(c *Config) { c.Divergence = "explode" }},
		{"negative steps", func(c *Config) { c.Steps = -1 }},
		{"negative join timeout", func(c *Config) { c.JoinTimeout = -time.Second }},
		{"engine", func(c *Config) { c.Emitter.Engine = "compute" }},
		{"size", func(c *Config) { c.Emitter.Size = 0 }},
		{"mode", func(c *Config) { c.Render.Mode = "wireframe" }},
		{"tail", func(c *Config) { c.Render.Tail = 1.5 }},
		{"pip", func(c *Config) { c.Render.PiP = "center" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestNewStepper(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = []float64{0.5, 0.5, 0.5}
	cfg.Divergence = "reseed"

	s, err := cfg.NewStepper()
	if err != nil {
		t.Fatal(err)
	}
	if s.Policy() != stepper.Reseed {
		t.Errorf("expected reseed policy, got %v", s.Policy())
	}
	if got := s.State(); got[0] != 0.5 {
		t.Errorf("expected seed state, got %v", got)
	}

	// Each call gets its own system.
	s2, err := cfg.NewStepper()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Step(); err != nil {
		t.Fatal(err)
	}
	if s2.Steps() != 0 {
		t.Error("steppers should not share state")
	}
	if cfg.Seed[0] != 0.5 {
		t.Error("seed was modified")
	}
}

func TestTFSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Render.Tail = 0.25
	cfg.Render.InvertView = true
	cfg.Render.PiP = "upper-left"

	tf, err := cfg.TFSettings()
	if err != nil {
		t.Fatal(err)
	}
	if tf.Tail != 0.25 || !tf.InvertView || tf.PiP != render.PiPUpperLeft {
		t.Errorf("unexpected settings %+v", tf)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := DefaultConfig()
	cfg.Attractor = "rossler"
	cfg.Params = map[string]float64{"c": 9}
	cfg.JoinTimeout = 750 * time.Millisecond
	cfg.Emitter = EmitterConfig{Engine: "transformed", Size: 64, RestartFull: true}

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Attractor != "rossler" || got.Params["c"] != 9 {
		t.Errorf("attractor not restored: %+v", got)
	}
	if got.JoinTimeout != 750*time.Millisecond {
		t.Errorf("expected 750ms join timeout, got %v", got.JoinTimeout)
	}
	if got.EmitterSettings() != (emitter.Settings{Size: 64, RestartFull: true}) {
		t.Errorf("unexpected emitter settings %+v", got.EmitterSettings())
	}
	if got.Engine() != emitter.Transformed {
		t.Errorf("expected transformed engine, got %v", got.Engine())
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("lorenz", "transient")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Params["rho"] != 99.96 {
		t.Errorf("expected rho 99.96, got %v", cfg.Params["rho"])
	}
	if cfg.Emitter.Size != DefaultSize {
		t.Errorf("expected default size, got %d", cfg.Emitter.Size)
	}

	cfg.Params["rho"] = 1
	if again := GetPreset("lorenz", "transient"); again.Params["rho"] != 99.96 {
		t.Error("GetPreset should return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("lorenz", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "classic"); cfg != nil {
		t.Error("expected nil for nonexistent attractor")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("lorenz")
	if len(presets) != 3 || presets[0] != "classic" {
		t.Errorf("expected sorted lorenz presets, got %v", presets)
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent attractor")
	}
}

func TestPresetsValid(t *testing.T) {
	known := map[string]bool{}
	for _, n := range attractors.Names() {
		known[n] = true
	}
	for _, a := range PresetAttractors() {
		if !known[a] {
			t.Errorf("presets for unregistered attractor %s", a)
		}
		for _, p := range ListPresets(a) {
			if err := GetPreset(a, p).Validate(); err != nil {
				t.Errorf("%s/%s: %v", a, p, err)
			}
		}
	}
}
