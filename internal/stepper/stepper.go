// Package stepper advances one attractor by one integration step at a time.
package stepper

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/attractors/internal/dynamo"
)

// DivergencePolicy decides what the step thread does with a non-finite step.
type DivergencePolicy int

const (
	// Halt stops appending and records the error until the thread is stopped.
	Halt DivergencePolicy = iota
	// Reseed restarts the trajectory from the seed state and keeps going.
	Reseed
)

func (p DivergencePolicy) String() string {
	switch p {
	case Halt:
		return "halt"
	case Reseed:
		return "reseed"
	default:
		return fmt.Sprintf("DivergencePolicy(%d)", int(p))
	}
}

func ParseDivergencePolicy(s string) (DivergencePolicy, error) {
	switch s {
	case "", "halt":
		return Halt, nil
	case "reseed":
		return Reseed, nil
	default:
		return Halt, fmt.Errorf("unknown divergence policy: %s", s)
	}
}

type Config struct {
	Dt     float64
	Policy DivergencePolicy
}

// Stepper owns one trajectory. It is deterministic given its seed,
// parameters and dt, and must be driven by a single goroutine.
type Stepper struct {
	sys     dynamo.System
	integ   dynamo.Integrator
	cfg     Config
	x0      dynamo.State
	x       dynamo.State
	t       float64
	steps   uint64
	reseeds uint64
}

func New(sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, cfg Config) (*Stepper, error) {
	if sys == nil || integ == nil {
		return nil, errors.New("stepper: system and integrator are required")
	}
	if cfg.Dt <= 0 || math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) {
		return nil, fmt.Errorf("%w: got %v", dynamo.ErrInvalidTimestep, cfg.Dt)
	}
	if len(x0) != sys.StateDim() {
		return nil, fmt.Errorf("%w: seed has %d dims, system wants %d", dynamo.ErrDimensionMismatch, len(x0), sys.StateDim())
	}
	if !x0.IsValid() {
		return nil, fmt.Errorf("seed %v: %w", x0, dynamo.ErrInvalidState)
	}
	if dx := sys.Derive(x0, 0); len(dx) != len(x0) || !dx.IsValid() {
		return nil, fmt.Errorf("derivative at seed: %w", dynamo.ErrInvalidState)
	}
	return &Stepper{
		sys:   sys,
		integ: integ,
		cfg:   cfg,
		x0:    x0.Clone(),
		x:     x0.Clone(),
	}, nil
}

// Step advances exactly one integration step and returns the new sample.
// A non-finite result is reported as a *dynamo.StepError wrapping
// dynamo.ErrDiverged, and the last valid state is kept.
func (s *Stepper) Step() (dynamo.Sample, error) {
	next := s.integ.Step(s.sys, s.x, s.t, s.cfg.Dt)
	sample := dynamo.Project(s.sys, next)
	if !next.IsValid() || !sample.IsValid() {
		return dynamo.Sample{}, &dynamo.StepError{
			Step:    s.steps,
			Time:    s.t,
			State:   s.x.Clone(),
			Wrapped: dynamo.ErrDiverged,
		}
	}
	s.x = next
	s.t += s.cfg.Dt
	s.steps++
	return sample, nil
}

// Reset restores the seed state and time.
func (s *Stepper) Reset() {
	s.x = s.x0.Clone()
	s.t = 0
	s.reseeds++
}

func (s *Stepper) Policy() DivergencePolicy { return s.cfg.Policy }
func (s *Stepper) Steps() uint64            { return s.steps }
func (s *Stepper) Reseeds() uint64          { return s.reseeds }
func (s *Stepper) Time() float64            { return s.t }
func (s *Stepper) State() dynamo.State      { return s.x.Clone() }
