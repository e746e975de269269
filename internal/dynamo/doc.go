// Package dynamo provides core primitives for attractor stepping.
//
// The package defines the fundamental interfaces and types shared by the
// stepping engine and its consumers:
//
//   - [State]: vector representing one attractor state
//   - [Sample]: a 3D point projected from a [State], immutable once written
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: numerical integrator interface
//   - [Configurable]: runtime parameter access
//
// # Example
//
//	sys := attractors.NewLorenz()
//	integ := integrators.NewRK4()
//	next := integ.Step(sys, x, t, dt)
//	s := dynamo.Project(sys, next)
//
// # Thread Safety
//
// Systems and integrators are NOT thread-safe. Each step thread owns its
// own instances; readers only ever see [Sample] values copied out of the
// history ring.
package dynamo
