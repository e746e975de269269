// Package emitter turns the step thread's history ring into the particle
// set drawn each frame.
//
// Two engines exist. A Static emitter keeps every particle where it was
// emitted and only copies the samples appended since the previous frame.
// A Transformed emitter rebuilds its whole visible set from the ring window
// every frame. Both honour the same full-buffer settings:
//
//	StopFull     the ring stops accepting samples once Size are written
//	RestartFull  the visible set empties and refills every Size samples
//	(neither)    the oldest particles are replaced first
//
// StopFull wins over RestartFull: a ring that never exceeds Size never
// reaches a restart boundary.
//
// Emitters are not safe for concurrent use. The orchestrator serializes
// every call.
package emitter

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/san-kum/attractors/internal/dynamo"
	"github.com/san-kum/attractors/internal/history"
	"github.com/san-kum/attractors/internal/render"
)

type Engine int

const (
	Static Engine = iota
	Transformed
)

func (e Engine) String() string {
	switch e {
	case Static:
		return "static"
	case Transformed:
		return "transformed"
	default:
		return fmt.Sprintf("Engine(%d)", int(e))
	}
}

func ParseEngine(s string) (Engine, error) {
	switch s {
	case "", "static":
		return Static, nil
	case "transformed", "tf":
		return Transformed, nil
	default:
		return Static, fmt.Errorf("%w: %s", ErrUnknownEngine, s)
	}
}

const DefaultSize = 100_000

var (
	ErrLive          = errors.New("emitter: settings are locked while the step thread runs")
	ErrInvalidSize   = errors.New("emitter: buffer size must be positive")
	ErrUnknownEngine = errors.New("emitter: unknown engine")
)

type Settings struct {
	Size        int
	StopFull    bool
	RestartFull bool
}

func DefaultSettings() Settings {
	return Settings{Size: DefaultSize}
}

func (s Settings) Validate() error {
	if s.Size <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, s.Size)
	}
	return nil
}

// FullPolicy maps the settings onto the ring's append policy.
func (s Settings) FullPolicy() history.FullPolicy {
	if s.StopFull {
		return history.StopWhenFull
	}
	return history.Overwrite
}

type Emitter interface {
	Engine() Engine
	ID() uuid.UUID

	// Build sets up renderer-side resources. It must succeed before a
	// step thread is bound to the emitter.
	Build(ctx *render.Context) error
	Built() bool
	Release()

	PreRenderEvents(ring *history.Ring)
	BufferRendered()
	PostRenderEvents()
	Particles() []dynamo.Sample
	Frames() uint64

	Settings() Settings
	SetSizeCircularBuffer(n int) error
	SetStopFull(on bool) error
	SetRestartFull(on bool) error

	// BufferCapacity and FullPolicy shape the ring of the thread bound
	// to this emitter.
	BufferCapacity() int
	FullPolicy() history.FullPolicy

	// Attach and Detach bracket the lifetime of the bound step thread.
	// Settings changes are refused with ErrLive in between.
	Attach()
	Detach()
	Live() bool
}

func New(engine Engine, s Settings) (Emitter, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch engine {
	case Static:
		return &staticEmitter{base: base{settings: s}}, nil
	case Transformed:
		return &transformedEmitter{base: base{settings: s}}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownEngine, engine)
	}
}

// base carries the settings, lifecycle and frame bookkeeping shared by both
// engines.
type base struct {
	settings Settings
	id       uuid.UUID
	built    bool
	live     atomic.Bool

	// frame is open between PreRenderEvents and PostRenderEvents;
	// uploaded is set once the first pass of a dual frame has consumed
	// the set.
	frame    bool
	uploaded bool
	frames   uint64

	ring      *history.Ring
	particles []dynamo.Sample
}

func (b *base) ID() uuid.UUID { return b.id }
func (b *base) Built() bool   { return b.built }

func (b *base) build(ctx *render.Context) error {
	if ctx == nil {
		return errors.New("emitter: nil render context")
	}
	if err := b.settings.Validate(); err != nil {
		return err
	}
	b.id = uuid.New()
	b.particles = make([]dynamo.Sample, 0, b.settings.Size)
	b.ring = nil
	b.built = true
	return nil
}

func (b *base) Release() {
	b.built = false
	b.particles = nil
	b.ring = nil
	b.frame, b.uploaded = false, false
}

func (b *base) Settings() Settings              { return b.settings }
func (b *base) BufferCapacity() int             { return b.settings.Size }
func (b *base) FullPolicy() history.FullPolicy { return b.settings.FullPolicy() }

func (b *base) Attach()    { b.live.Store(true) }
func (b *base) Detach()    { b.live.Store(false) }
func (b *base) Live() bool { return b.live.Load() }

func (b *base) SetSizeCircularBuffer(n int) error {
	if b.live.Load() {
		return ErrLive
	}
	next := b.settings
	next.Size = n
	if err := next.Validate(); err != nil {
		return err
	}
	b.settings = next
	b.particles = b.particles[:0]
	b.ring = nil
	return nil
}

func (b *base) SetStopFull(on bool) error {
	if b.live.Load() {
		return ErrLive
	}
	b.settings.StopFull = on
	return nil
}

func (b *base) SetRestartFull(on bool) error {
	if b.live.Load() {
		return ErrLive
	}
	b.settings.RestartFull = on
	return nil
}

// openFrame reports whether the caller should refresh the particle set.
// A frame whose set was already uploaded keeps it.
func (b *base) openFrame(ring *history.Ring) bool {
	if !b.built || ring == nil {
		return false
	}
	if b.frame && b.uploaded {
		return false
	}
	b.frame = true
	return true
}

func (b *base) BufferRendered() {
	if b.frame {
		b.uploaded = true
	}
}

func (b *base) PostRenderEvents() {
	if b.frame {
		b.frames++
	}
	b.frame, b.uploaded = false, false
}

// Frames counts completed render frames.
func (b *base) Frames() uint64 { return b.frames }

// Particles is the set for the current frame. The slice is reused by the
// next PreRenderEvents.
func (b *base) Particles() []dynamo.Sample { return b.particles }

// epoch is the restart period a logical ring position falls in.
func (b *base) epoch(pos uint64) uint64 {
	return pos / uint64(b.settings.Size)
}
