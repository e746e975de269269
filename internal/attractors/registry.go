package attractors

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/attractors/internal/dynamo"
)

// ErrUnknown is returned by New for unregistered names.
var ErrUnknown = errors.New("attractors: unknown attractor")

// Attractor is everything the stepping engine needs from a system.
type Attractor interface {
	dynamo.System
	dynamo.Configurable
	dynamo.Initializer
}

var registry = map[string]func() Attractor{
	"lorenz":        func() Attractor { return NewLorenz() },
	"rossler":       func() Attractor { return NewRossler() },
	"aizawa":        func() Attractor { return NewAizawa() },
	"thomas":        func() Attractor { return NewThomas() },
	"halvorsen":     func() Attractor { return NewHalvorsen() },
	"chen":          func() Attractor { return NewChen() },
	"dadras":        func() Attractor { return NewDadras() },
	"hyper_rossler": func() Attractor { return NewHyperRossler() },
}

// New builds the named attractor with its default parameters.
func New(name string) (Attractor, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	return fn(), nil
}

// NewWithParams builds the named attractor and applies params on top of the defaults.
func NewWithParams(name string, params map[string]float64) (Attractor, error) {
	a, err := New(name)
	if err != nil {
		return nil, err
	}
	for k, v := range params {
		if err := a.SetParam(k, v); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return a, nil
}

// Names lists registered attractors in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkValue(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s=%v", dynamo.ErrParameterBounds, name, v)
	}
	return nil
}

func unknownParam(name string) error {
	return fmt.Errorf("%w: unknown parameter %q", dynamo.ErrParameterBounds, name)
}
