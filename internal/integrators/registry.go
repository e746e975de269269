package integrators

import (
	"fmt"

	"github.com/san-kum/attractors/internal/dynamo"
)

// New returns a fresh integrator by name ("rk4", "rk45" or "euler").
func New(name string) (dynamo.Integrator, error) {
	switch name {
	case "", "rk4":
		return NewRK4(), nil
	case "rk45", "dopri":
		return NewRK45(), nil
	case "euler":
		return NewEuler(), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
}
