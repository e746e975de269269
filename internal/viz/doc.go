// Package viz renders a particle system in the terminal.
//
// The render passes draw into braille canvases owned by a [Screen]:
//
//   - [DotPass]: projects particles through a render.Transform
//   - [Bloom]: widens lit dots, standing in for glow
//   - [Merge]: overlays points onto billboards in dual mode
//
// [Model] is the Bubble Tea view that renders one frame per tick, and
// [Picker] chooses an attractor before handing over to it.
//
// # Key Bindings
//
//	C     - Toggle cockpit view
//	E     - Switch emitter engine
//	M     - Cycle render mode
//	[ ]   - Move the cockpit tail
//	?     - Show help overlay
package viz
