package render

import (
	"sync"

	"github.com/san-kum/attractors/internal/dynamo"
)

// Call is one invocation seen by a Recorder.
type Call struct {
	Op        string // resize, render, apply, merge
	W, H      int
	Particles int
	View      Transform
	Viewport  Viewport
	In        []Texture
	Out       Texture
}

// Recorder is a pass that draws nothing and remembers every call. It
// satisfies ParticlePass, PostPass and Merger, and is used by headless runs
// and tests.
type Recorder struct {
	Name string

	mu    sync.Mutex
	calls []Call
	next  Texture
}

func NewRecorder(name string) *Recorder { return &Recorder{Name: name} }

func (r *Recorder) record(c Call) Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.Op != "resize" {
		r.next++
		c.Out = r.next
	}
	r.calls = append(r.calls, c)
	return c.Out
}

func (r *Recorder) Resize(w, h int) {
	r.record(Call{Op: "resize", W: w, H: h})
}

func (r *Recorder) Render(particles []dynamo.Sample, view Transform, vp Viewport) Texture {
	return r.record(Call{Op: "render", Particles: len(particles), View: view, Viewport: vp})
}

func (r *Recorder) Apply(in Texture) Texture {
	return r.record(Call{Op: "apply", In: []Texture{in}})
}

func (r *Recorder) Merge(billboard, points Texture) Texture {
	return r.record(Call{Op: "merge", In: []Texture{billboard, points}})
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many calls of op were recorded.
func (r *Recorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (r *Recorder) Last(op string) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].Op == op {
			return r.calls[i], true
		}
	}
	return Call{}, false
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = r.calls[:0]
	r.mu.Unlock()
}

// Recorders is a fully populated recording pipeline.
type Recorders struct {
	Points, PointGlow, PointFXAA             *Recorder
	Billboard, BillboardGlow, BillboardFXAA *Recorder
	Merge                                    *Recorder
}

// NewRecordingContext returns a context whose every pass is a Recorder.
func NewRecordingContext(w, h int) (*Context, *Recorders) {
	rec := &Recorders{
		Points:        NewRecorder("points"),
		PointGlow:     NewRecorder("points/glow"),
		PointFXAA:     NewRecorder("points/fxaa"),
		Billboard:     NewRecorder("billboard"),
		BillboardGlow: NewRecorder("billboard/glow"),
		BillboardFXAA: NewRecorder("billboard/fxaa"),
		Merge:         NewRecorder("merge"),
	}
	c := NewContext(0, 0)
	c.Points = PassSet{Particles: rec.Points, Glow: rec.PointGlow, FXAA: rec.PointFXAA}
	c.Billboard = PassSet{Particles: rec.Billboard, Glow: rec.BillboardGlow, FXAA: rec.BillboardFXAA}
	c.Merge = rec.Merge
	c.Resize(w, h)
	return c, rec
}

func (r *Recorders) All() []*Recorder {
	return []*Recorder{r.Points, r.PointGlow, r.PointFXAA, r.Billboard, r.BillboardGlow, r.BillboardFXAA, r.Merge}
}
