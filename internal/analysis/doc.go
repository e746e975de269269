// Package analysis characterizes attractors numerically.
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda, err := analysis.LyapunovExponent(sys, integ, x0, analysis.DefaultLyapunov())
//	if err == nil && lambda > 0 {
//	    // System is chaotic
//	}
//
// Bifurcation sweeps a parameter and records the maxima of one state
// component, and PoincareSection cuts a stored trajectory with a plane.
package analysis
