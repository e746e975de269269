package analysis

import (
	"context"
	"fmt"

	"github.com/san-kum/attractors/internal/attractors"
	"github.com/san-kum/attractors/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

type SurveyResult struct {
	Attractor string
	Lyapunov  float64
	Err       error
}

// Survey estimates the largest Lyapunov exponent of every named attractor
// with its default parameters and seed, one goroutine per attractor. A
// divergent attractor reports its error in the result; only cancellation
// fails the survey.
func Survey(ctx context.Context, names []string, newInteg func() dynamo.Integrator, cfg LyapunovConfig) ([]SurveyResult, error) {
	results := make([]SurveyResult, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sys, err := attractors.New(name)
			if err != nil {
				return fmt.Errorf("survey: %w", err)
			}
			lambda, err := LyapunovExponent(sys, newInteg(), sys.DefaultState(), cfg)
			results[i] = SurveyResult{Attractor: name, Lyapunov: lambda, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
