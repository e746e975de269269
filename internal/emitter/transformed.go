package emitter

import (
	"github.com/san-kum/attractors/internal/dynamo"
	"github.com/san-kum/attractors/internal/history"
	"github.com/san-kum/attractors/internal/render"
)

type transformedEmitter struct {
	base
}

func (e *transformedEmitter) Engine() Engine { return Transformed }

func (e *transformedEmitter) Build(ctx *render.Context) error {
	return e.build(ctx)
}

// PreRenderEvents rebuilds the visible set from the ring window.
func (e *transformedEmitter) PreRenderEvents(ring *history.Ring) {
	if !e.openFrame(ring) {
		return
	}
	e.ring = ring
	e.particles = e.particles[:0]

	if !e.settings.RestartFull {
		e.particles = ring.Snapshot(e.particles)
		return
	}

	n := ring.Written()
	if n == 0 {
		return
	}
	size := uint64(e.settings.Size)
	start := e.epoch(n-1) * size
	end := start + size
	ring.Each(start, func(pos uint64, s dynamo.Sample) {
		if pos < end {
			e.particles = append(e.particles, s)
		}
	})
}

// RestartMark is the ring position the visible set currently starts at.
func (e *transformedEmitter) RestartMark() uint64 {
	if e.ring == nil || !e.settings.RestartFull {
		return 0
	}
	n := e.ring.Written()
	if n == 0 {
		return 0
	}
	return e.epoch(n-1) * uint64(e.settings.Size)
}
