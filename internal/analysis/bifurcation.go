package analysis

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/san-kum/attractors/internal/attractors"
	"github.com/san-kum/attractors/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// BifurcationPoint holds the local maxima of one state component found
// for a single parameter value.
type BifurcationPoint struct {
	Param  float64
	Maxima []float64
	Err    error
}

type BifurcationConfig struct {
	Param      string
	Min, Max   float64
	Steps      int
	StateIndex int
	Dt         float64
	Transient  float64
	Record     float64
	MaxPeaks   int
}

func DefaultBifurcation(param string, lo, hi float64) BifurcationConfig {
	return BifurcationConfig{
		Param:     param,
		Min:       lo,
		Max:       hi,
		Steps:     80,
		Dt:        0.01,
		Transient: 100,
		Record:    100,
		MaxPeaks:  200,
	}
}

func (c BifurcationConfig) validate(dim int) error {
	if c.Steps < 2 {
		return fmt.Errorf("analysis: bifurcation needs at least 2 steps, got %d", c.Steps)
	}
	if !(c.Max > c.Min) {
		return fmt.Errorf("analysis: empty parameter range [%v, %v]", c.Min, c.Max)
	}
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return dynamo.ErrInvalidTimestep
	}
	if c.StateIndex < 0 || c.StateIndex >= dim {
		return fmt.Errorf("%w: state index %d outside %d dims", dynamo.ErrDimensionMismatch, c.StateIndex, dim)
	}
	return nil
}

// Bifurcation sweeps cfg.Param across [Min, Max] and records the local
// maxima of x[StateIndex] once the transient has passed. Period-n orbits
// show n distinct maxima; chaos shows a smear. Every parameter value runs
// on its own attractor instance; the sweep is spread over GOMAXPROCS
// goroutines. A divergent parameter value reports its error in its point.
func Bifurcation(ctx context.Context, name string, params map[string]float64, newInteg func() dynamo.Integrator, cfg BifurcationConfig) ([]BifurcationPoint, error) {
	probe, err := attractors.NewWithParams(name, params)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(probe.StateDim()); err != nil {
		return nil, err
	}
	if _, ok := probe.GetParams()[cfg.Param]; !ok {
		return nil, fmt.Errorf("%w: %s has no parameter %q", dynamo.ErrParameterBounds, name, cfg.Param)
	}

	points := make([]BifurcationPoint, cfg.Steps)
	step := (cfg.Max - cfg.Min) / float64(cfg.Steps-1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range points {
		p := cfg.Min + float64(i)*step
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sys, err := attractors.NewWithParams(name, params)
			if err != nil {
				return err
			}
			if err := sys.SetParam(cfg.Param, p); err != nil {
				return err
			}
			maxima, err := peaks(sys, newInteg(), sys.DefaultState(), cfg)
			points[i] = BifurcationPoint{Param: p, Maxima: maxima, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

func peaks(sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, cfg BifurcationConfig) ([]float64, error) {
	x := x0.Clone()
	t := 0.0
	for ; t < cfg.Transient; t += cfg.Dt {
		x = integ.Step(sys, x, t, cfg.Dt)
		if !x.IsValid() {
			return nil, fmt.Errorf("transient at t=%.3f: %w", t, dynamo.ErrDiverged)
		}
	}

	var out []float64
	prev2, prev1 := math.NaN(), x[cfg.StateIndex]
	for end := t + cfg.Record; t < end; t += cfg.Dt {
		x = integ.Step(sys, x, t, cfg.Dt)
		if !x.IsValid() {
			return out, fmt.Errorf("at t=%.3f: %w", t, dynamo.ErrDiverged)
		}
		cur := x[cfg.StateIndex]
		if prev1 > prev2 && prev1 >= cur {
			out = append(out, prev1)
			if cfg.MaxPeaks > 0 && len(out) >= cfg.MaxPeaks {
				break
			}
		}
		prev2, prev1 = prev1, cur
	}
	return out, nil
}

// Range returns the smallest and largest maximum over all points. ok is
// false when no point recorded a maximum.
func Range(points []BifurcationPoint) (lo, hi float64, ok bool) {
	for _, p := range points {
		for _, v := range p.Maxima {
			if !ok {
				lo, hi, ok = v, v, true
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi, ok
}
