package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/attractors/internal/dynamo"
)

func TestRK45_EnergyConservation(t *testing.T) {
	integ := NewRK45()
	dyn := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Fatal("RK45 produced invalid state")
	}
	if drift := math.Abs(x.Norm() - 1); drift > 1e-6 {
		t.Errorf("RK45 drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	tests := []struct {
		name   string
		dt     float64
		shrink bool
	}{
		{"large step shrinks", 1.0, true},
		{"small step grows", 0.001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			integ := NewRK45()
			x, ratio, dtNext := integ.StepAdaptive(&harmonicOscillator{}, dynamo.State{1, 0}, 0, tt.dt)
			if !x.IsValid() {
				t.Fatal("StepAdaptive produced invalid state")
			}
			if ratio < 0 || dtNext <= 0 {
				t.Fatalf("ratio=%v dtNext=%v", ratio, dtNext)
			}
			if tt.shrink && dtNext >= tt.dt {
				t.Errorf("expected dt to shrink from %v, got %v", tt.dt, dtNext)
			}
			if !tt.shrink && dtNext <= tt.dt {
				t.Errorf("expected dt to grow from %v, got %v", tt.dt, dtNext)
			}
		})
	}
}

func TestRK45_MoreAccurateThanRK4(t *testing.T) {
	dyn := &harmonicOscillator{}
	r4, r45 := NewRK4(), NewRK45()
	x4, x45 := dynamo.State{1, 0}, dynamo.State{1, 0}
	dt := 0.1

	for i := 0; i < 100; i++ {
		x4 = r4.Step(dyn, x4, float64(i)*dt, dt)
		x45 = r45.Step(dyn, x45, float64(i)*dt, dt)
	}

	want := math.Cos(100 * dt)
	if math.Abs(x45[0]-want) > math.Abs(x4[0]-want) {
		t.Errorf("rk45 error %e exceeds rk4 error %e", math.Abs(x45[0]-want), math.Abs(x4[0]-want))
	}
}
