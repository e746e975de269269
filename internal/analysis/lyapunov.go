package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/attractors/internal/dynamo"
)

type LyapunovConfig struct {
	Dt           float64
	Transient    float64 // time integrated before measuring
	Duration     float64 // measured time
	Perturbation float64
}

func DefaultLyapunov() LyapunovConfig {
	return LyapunovConfig{Dt: 0.01, Transient: 10, Duration: 100, Perturbation: 1e-8}
}

// LyapunovExponent estimates the largest Lyapunov exponent by trajectory
// separation:
//
//  1. settle onto the attractor for Transient
//  2. run a second trajectory Perturbation away
//  3. after every step, accumulate ln(|δx|/δ0) and pull the second
//     trajectory back to distance δ0 along δx
//
// λ ≈ Σ ln(|δx|/δ0) / Duration.
func LyapunovExponent(sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, cfg LyapunovConfig) (float64, error) {
	if len(x0) != sys.StateDim() {
		return 0, fmt.Errorf("%w: state has %d values, system %d", dynamo.ErrDimensionMismatch, len(x0), sys.StateDim())
	}
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return 0, dynamo.ErrInvalidTimestep
	}
	if !(cfg.Perturbation > 0) || !(cfg.Duration > 0) {
		return 0, fmt.Errorf("analysis: perturbation and duration must be positive")
	}

	x := x0.Clone()
	t := 0.0
	for ; t < cfg.Transient; t += cfg.Dt {
		x = integ.Step(sys, x, t, cfg.Dt)
		if !x.IsValid() {
			return 0, fmt.Errorf("transient at t=%.3f: %w", t, dynamo.ErrDiverged)
		}
	}

	d0 := cfg.Perturbation
	xp := x.Clone()
	xp[0] += d0

	sumLog := 0.0
	n := 0
	for end := t + cfg.Duration; t < end; t += cfg.Dt {
		x = integ.Step(sys, x, t, cfg.Dt)
		xp = integ.Step(sys, xp, t, cfg.Dt)
		if !x.IsValid() || !xp.IsValid() {
			return 0, fmt.Errorf("at t=%.3f: %w", t, dynamo.ErrDiverged)
		}

		sep := 0.0
		for i := range x {
			diff := xp[i] - x[i]
			sep += diff * diff
		}
		sep = math.Sqrt(sep)
		if sep == 0 {
			// Collapsed onto the reference trajectory; restart the offset.
			xp = x.Clone()
			xp[0] += d0
			continue
		}

		sumLog += math.Log(sep / d0)
		n++

		scale := d0 / sep
		for i := range xp {
			xp[i] = x[i] + (xp[i]-x[i])*scale
		}
	}

	if n == 0 {
		return 0, nil
	}
	return sumLog / (float64(n) * cfg.Dt), nil
}
