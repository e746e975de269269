// Package render holds the collaborators the particle orchestrator drives
// each frame: particle passes, post passes (glow, FXAA), the merger used in
// dual mode, and the view transforms for the main and cockpit cameras.
//
// Passes are supplied by the host through a [Context]; any pass left nil is
// skipped. Nothing here is global, so several orchestrators can each own a
// context.
package render
