package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/san-kum/attractors/internal/attractors"
	"github.com/san-kum/attractors/internal/emitter"
	"github.com/san-kum/attractors/internal/integrators"
	"github.com/san-kum/attractors/internal/logger"
	"github.com/san-kum/attractors/internal/render"
	"github.com/san-kum/attractors/internal/stepper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAttractor   = "lorenz"
	DefaultDt          = 0.005
	DefaultSteps       = 20000
	DefaultSize        = 20000
	DefaultJoinTimeout = 2 * time.Second
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Attractor   string             `yaml:"attractor"`
	Params      map[string]float64 `yaml:"params,omitempty"`
	Integrator  string             `yaml:"integrator"`
	Dt          float64            `yaml:"dt"`
	Seed        []float64          `yaml:"seed,omitempty"`
	Divergence  string             `yaml:"divergence"`
	Steps       int                `yaml:"steps"`
	JoinTimeout time.Duration      `yaml:"join_timeout"`
	Emitter     EmitterConfig      `yaml:"emitter"`
	Render      RenderConfig       `yaml:"render"`
	Log         LogConfig          `yaml:"log"`
}

type EmitterConfig struct {
	Engine      string `yaml:"engine"`
	Size        int    `yaml:"size"`
	StopFull    bool   `yaml:"stop_full"`
	RestartFull bool   `yaml:"restart_full"`
}

type RenderConfig struct {
	Mode       string  `yaml:"mode"`
	Cockpit    bool    `yaml:"cockpit"`
	Tail       float64 `yaml:"tail"`
	InvertView bool    `yaml:"invert_view"`
	PiP        string  `yaml:"pip"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	Encoding    string `yaml:"encoding"`
}

func DefaultConfig() *Config {
	return &Config{
		Attractor:   DefaultAttractor,
		Integrator:  "rk4",
		Dt:          DefaultDt,
		Divergence:  "halt",
		Steps:       DefaultSteps,
		JoinTimeout: DefaultJoinTimeout,
		Emitter: EmitterConfig{
			Engine: "static",
			Size:   DefaultSize,
		},
		Render: RenderConfig{
			Mode: "points",
			Tail: render.DefaultTFSettings().Tail,
			PiP:  "none",
		},
		Log: LogConfig{Level: "info"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every field that would otherwise fail later, at thread
// start or first render.
func (c *Config) Validate() error {
	a, err := attractors.NewWithParams(c.Attractor, c.Params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := integrators.New(c.Integrator); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !(c.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalid, c.Dt)
	}
	if len(c.Seed) != 0 && len(c.Seed) != a.StateDim() {
		return fmt.Errorf("%w: %s takes a %d-dimensional seed, got %d", ErrInvalid, c.Attractor, a.StateDim(), len(c.Seed))
	}
	if _, err := stepper.ParseDivergencePolicy(c.Divergence); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps must not be negative", ErrInvalid)
	}
	if c.JoinTimeout < 0 {
		return fmt.Errorf("%w: join_timeout must not be negative", ErrInvalid)
	}
	if _, err := emitter.ParseEngine(c.Emitter.Engine); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.EmitterSettings().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := render.ParseMode(c.Render.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := c.TFSettings(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// NewStepper builds a fresh stepper for the configured attractor. It is
// called once per step thread, so every thread gets its own system.
func (c *Config) NewStepper() (*stepper.Stepper, error) {
	a, err := attractors.NewWithParams(c.Attractor, c.Params)
	if err != nil {
		return nil, err
	}
	integ, err := integrators.New(c.Integrator)
	if err != nil {
		return nil, err
	}
	policy, err := stepper.ParseDivergencePolicy(c.Divergence)
	if err != nil {
		return nil, err
	}
	x0 := a.DefaultState()
	if len(c.Seed) > 0 {
		x0 = append(x0[:0:0], c.Seed...)
	}
	return stepper.New(a, integ, x0, stepper.Config{Dt: c.Dt, Policy: policy})
}

func (c *Config) Engine() emitter.Engine {
	e, _ := emitter.ParseEngine(c.Emitter.Engine)
	return e
}

func (c *Config) EmitterSettings() emitter.Settings {
	return emitter.Settings{
		Size:        c.Emitter.Size,
		StopFull:    c.Emitter.StopFull,
		RestartFull: c.Emitter.RestartFull,
	}
}

func (c *Config) Mode() render.Mode {
	m, _ := render.ParseMode(c.Render.Mode)
	return m
}

func (c *Config) TFSettings() (render.TFSettings, error) {
	tf := render.DefaultTFSettings()
	tf.Tail = c.Render.Tail
	tf.InvertView = c.Render.InvertView
	pip, err := render.ParsePiPPosition(c.Render.PiP)
	if err != nil {
		return tf, err
	}
	tf.PiP = pip
	return tf, tf.Validate()
}

func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.Log.Level,
		Development: c.Log.Development,
		Encoding:    c.Log.Encoding,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	if c.Seed != nil {
		out.Seed = append([]float64(nil), c.Seed...)
	}
	return &out
}
