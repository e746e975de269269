package integrators

import (
	"math"

	"github.com/san-kum/attractors/internal/dynamo"
)

// Dormand-Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1}

	dpA = [7][6]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
		{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
	}

	// fifth-order weights minus the embedded fourth-order ones
	dpE = [7]float64{
		35.0/384.0 - 5179.0/57600.0,
		0,
		500.0/1113.0 - 7571.0/16695.0,
		125.0/192.0 - 393.0/640.0,
		-2187.0/6784.0 + 92097.0/339200.0,
		11.0/84.0 - 187.0/2100.0,
		-1.0 / 40.0,
	}
)

// RK45 is the Dormand-Prince pair. Step takes a fixed step with the
// fifth-order solution; StepAdaptive also returns the error ratio and the
// step size the controller would pick next.
type RK45 struct {
	Tol float64

	safety   float64
	minScale float64
	maxScale float64

	k       [7]dynamo.State
	scratch dynamo.State
}

func NewRK45() *RK45 {
	return &RK45{
		Tol:      1e-6,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.scratch) != n {
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK45) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	next, _, _ := r.StepAdaptive(sys, x, t, dt)
	return next
}

func (r *RK45) StepAdaptive(sys dynamo.System, x dynamo.State, t, dt float64) (next dynamo.State, errRatio, dtNext float64) {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k[0], sys.Derive(x, t))
	for stage := 1; stage < 6; stage++ {
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < stage; j++ {
				sum += dpA[stage][j] * r.k[j][i]
			}
			r.scratch[i] = x[i] + dt*sum
		}
		copy(r.k[stage], sys.Derive(r.scratch, t+dpC[stage]*dt))
	}

	next = make(dynamo.State, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < 6; j++ {
			sum += dpA[6][j] * r.k[j][i]
		}
		next[i] = x[i] + dt*sum
	}
	copy(r.k[6], sys.Derive(next, t+dt))

	errMax := 0.0
	for i := 0; i < n; i++ {
		est := 0.0
		for j := range dpE {
			est += dpE[j] * r.k[j][i]
		}
		scale := math.Abs(x[i]) + math.Abs(dt*r.k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(dt*est)/scale)
	}

	errRatio = errMax / r.Tol
	switch {
	case errRatio > 1:
		dtNext = dt * math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	case errRatio > 0:
		dtNext = dt * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	default:
		dtNext = dt * r.maxScale
	}
	return next, errRatio, dtNext
}
