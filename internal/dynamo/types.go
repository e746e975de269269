package dynamo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Sample is one emitted attractor point.
type Sample struct {
	X, Y, Z float64
}

func (s Sample) IsValid() bool {
	return State{s.X, s.Y, s.Z}.IsValid()
}

func (s Sample) Vec3() mgl64.Vec3 { return mgl64.Vec3{s.X, s.Y, s.Z} }

func SampleOf(v mgl64.Vec3) Sample { return Sample{v[0], v[1], v[2]} }

type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Projector is implemented by systems with more than three dimensions.
type Projector interface {
	Project(x State) Sample
}

// Project maps a state to a sample, using the system's own projection when it has one.
func Project(sys System, x State) Sample {
	if p, ok := sys.(Projector); ok {
		return p.Project(x)
	}
	var s Sample
	switch {
	case len(x) >= 3:
		s = Sample{x[0], x[1], x[2]}
	case len(x) == 2:
		s = Sample{x[0], x[1], 0}
	case len(x) == 1:
		s = Sample{x[0], 0, 0}
	}
	return s
}

type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Initializer provides the canonical seed state of a system.
type Initializer interface {
	DefaultState() State
}
