package emitter

import (
	"github.com/san-kum/attractors/internal/dynamo"
	"github.com/san-kum/attractors/internal/history"
	"github.com/san-kum/attractors/internal/render"
)

type staticEmitter struct {
	base

	mark   uint64 // next ring position to copy
	cursor int    // slot replaced next once the set is full
	period uint64
}

func (e *staticEmitter) Engine() Engine { return Static }

func (e *staticEmitter) Build(ctx *render.Context) error {
	if err := e.build(ctx); err != nil {
		return err
	}
	e.reset(nil)
	return nil
}

func (e *staticEmitter) reset(ring *history.Ring) {
	e.ring = ring
	e.particles = e.particles[:0]
	e.mark, e.cursor, e.period = 0, 0, 0
}

// PreRenderEvents copies only the samples appended since the last frame.
func (e *staticEmitter) PreRenderEvents(ring *history.Ring) {
	if !e.openFrame(ring) {
		return
	}
	if ring != e.ring {
		e.reset(ring)
	}
	size := e.settings.Size
	restart := e.settings.RestartFull

	e.mark = ring.Each(e.mark, func(pos uint64, s dynamo.Sample) {
		if restart {
			if p := e.epoch(pos); p != e.period {
				e.particles = e.particles[:0]
				e.cursor = 0
				e.period = p
			}
		}
		if len(e.particles) < size {
			e.particles = append(e.particles, s)
			return
		}
		e.particles[e.cursor] = s
		e.cursor = (e.cursor + 1) % size
	})
}
