package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/attractors/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) StateDim() int { return 2 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &harmonicOscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestRK4_DoesNotAliasInput(t *testing.T) {
	x0 := dynamo.State{1.0, 0.0}
	x1 := NewRK4().Step(&harmonicOscillator{}, x0, 0, 0.1)
	if x0[0] != 1.0 || x0[1] != 0.0 {
		t.Errorf("input mutated: %v", x0)
	}
	x1[0] = 42
	if x0[0] == 42 {
		t.Error("result aliases input")
	}
}

func TestRK4_Deterministic(t *testing.T) {
	a, b := NewRK4(), NewRK4()
	xa, xb := dynamo.State{0.3, 0.1}, dynamo.State{0.3, 0.1}
	for i := 0; i < 50; i++ {
		xa = a.Step(&harmonicOscillator{}, xa, 0, 0.05)
		xb = b.Step(&harmonicOscillator{}, xb, 0, 0.05)
	}
	if xa[0] != xb[0] || xa[1] != xb[1] {
		t.Errorf("same inputs diverged: %v vs %v", xa, xb)
	}
}

func TestEulerVsRK4(t *testing.T) {
	dyn := &harmonicOscillator{}
	e, r := NewEuler(), NewRK4()
	xe, xr := dynamo.State{1, 0}, dynamo.State{1, 0}
	for i := 0; i < 1000; i++ {
		xe = e.Step(dyn, xe, 0, 0.01)
		xr = r.Step(dyn, xr, 0, 0.01)
	}
	if math.Abs(xe.Norm()-1) < math.Abs(xr.Norm()-1) {
		t.Error("euler drifted less than rk4")
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", "rk4", "rk45", "euler"} {
		if _, err := New(name); err != nil {
			t.Errorf("New(%q): %v", name, err)
		}
	}
	if _, err := New("verlet"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}
