// Package attractors provides chaotic dynamical systems whose trajectories
// are sampled as particle positions.
//
// Each attractor implements [dynamo.System], [dynamo.Configurable] and
// [dynamo.Initializer]:
//
//   - [Lorenz]: butterfly attractor
//   - [Rossler]: single-band spiral
//   - [Aizawa], [Thomas], [Halvorsen], [Chen], [Dadras]
//   - [HyperRossler]: 4D hyperchaotic system projected to 3D
//
// Use [New] to build one by name:
//
//	sys, err := attractors.New("lorenz")
package attractors
