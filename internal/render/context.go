package render

import "sync/atomic"

// PassSet is the pipeline for one particle shape.
type PassSet struct {
	Particles ParticlePass
	Glow      PostPass
	FXAA      PostPass
}

func (s PassSet) passes() []Pass {
	var out []Pass
	if s.Particles != nil {
		out = append(out, s.Particles)
	}
	if s.Glow != nil {
		out = append(out, s.Glow)
	}
	if s.FXAA != nil {
		out = append(out, s.FXAA)
	}
	return out
}

// Post runs the glow and FXAA passes that are present.
func (s PassSet) Post(tex Texture) Texture {
	if s.Glow != nil {
		tex = s.Glow.Apply(tex)
	}
	if s.FXAA != nil {
		tex = s.FXAA.Apply(tex)
	}
	return tex
}

// Context is the explicit render state owned by one orchestrator.
//
// Width, Height, Mode and the transforms are changed only while the owner
// holds its write lock. The update flag may be raised from render paths.
type Context struct {
	Width, Height int
	Mode          Mode

	Points    PassSet
	Billboard PassSet
	Merge     Merger

	// Main is the trackball view; Cockpit settings drive the
	// trajectory-following view.
	Main    Transform
	Cockpit TFSettings

	update atomic.Bool
}

func NewContext(w, h int) *Context {
	c := &Context{
		Main:    DefaultTransform(),
		Cockpit: DefaultTFSettings(),
	}
	c.Resize(w, h)
	return c
}

// Resize updates the aspect ratio, resizes every pass and raises the
// update flag. Zero dimensions are ignored.
func (c *Context) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	c.Width, c.Height = w, h
	c.Main.SetAspect(float64(w) / float64(h))
	for _, p := range c.Passes() {
		p.Resize(w, h)
	}
	c.SetUpdate()
}

// Passes lists every non-nil pass in the context.
func (c *Context) Passes() []Pass {
	out := append(c.Points.passes(), c.Billboard.passes()...)
	if c.Merge != nil {
		out = append(out, c.Merge)
	}
	return out
}

// Active returns the pass set for a single-shape mode.
func (c *Context) Active() PassSet {
	if c.Mode == Billboard {
		return c.Billboard
	}
	return c.Points
}

func (c *Context) Viewport() Viewport { return FullViewport(c.Width, c.Height) }

func (c *Context) SetUpdate() { c.update.Store(true) }

// TakeUpdate reports and clears the update flag.
func (c *Context) TakeUpdate() bool { return c.update.Swap(false) }
