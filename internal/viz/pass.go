package viz

import (
	"github.com/san-kum/attractors/internal/dynamo"
	"github.com/san-kum/attractors/internal/render"
)

// Screen owns the braille canvases the terminal passes draw into. A
// render.Texture is an index into it, offset by one so zero stays empty.
type Screen struct {
	canvases []*Canvas
}

func NewScreen() *Screen { return &Screen{} }

func (s *Screen) alloc() (render.Texture, *Canvas) {
	c := NewCanvas(0, 0)
	s.canvases = append(s.canvases, c)
	return render.Texture(len(s.canvases)), c
}

// Canvas resolves a texture, or returns nil for zero or unknown handles.
func (s *Screen) Canvas(t render.Texture) *Canvas {
	if t == 0 || int(t) > len(s.canvases) {
		return nil
	}
	return s.canvases[t-1]
}

// cells converts a framebuffer size in dots to braille cells.
func cells(w, h int) (cols, rows int) { return (w + 1) / 2, (h + 3) / 4 }

// Install wires the terminal pipeline into ctx: single dots for points,
// small discs for billboards, bloom on both and an OR merge for dual mode.
// It resizes ctx to w x h dots.
func Install(ctx *render.Context, s *Screen, w, h int) {
	ctx.Points = render.PassSet{Particles: NewDotPass(s, 0), Glow: NewBloom(s)}
	ctx.Billboard = render.PassSet{Particles: NewDotPass(s, 1), Glow: NewBloom(s)}
	ctx.Merge = NewMerge(s)
	ctx.Resize(w, h)
}

// DotPass projects every particle and lights a square of dots around it.
type DotPass struct {
	tex    render.Texture
	canvas *Canvas
	radius int
	w, h   int
}

func NewDotPass(s *Screen, radius int) *DotPass {
	tex, c := s.alloc()
	return &DotPass{tex: tex, canvas: c, radius: radius}
}

func (p *DotPass) Resize(w, h int) {
	p.w, p.h = w, h
	p.canvas.Resize(cells(w, h))
}

// Render draws into vp. A full-screen viewport clears the canvas; a smaller
// one clears only its rectangle and frames it, leaving the rest of the last
// frame underneath.
func (p *DotPass) Render(particles []dynamo.Sample, view render.Transform, vp render.Viewport) render.Texture {
	if vp.W <= 0 || vp.H <= 0 {
		return p.tex
	}
	// Viewports count rows from the bottom; the canvas from the top.
	top := p.h - vp.Y - vp.H
	if vp == render.FullViewport(p.w, p.h) {
		p.canvas.Clear()
	} else {
		p.canvas.ClearRect(vp.X, top, vp.W, vp.H)
		p.canvas.DrawRect(vp.X, top, vp.W, vp.H)
	}

	proj := view.Projector()
	for _, s := range particles {
		ndc, ok := proj.Project(s.Vec3())
		if !ok {
			continue
		}
		x := vp.X + int((ndc.X()+1)/2*float64(vp.W-1)+0.5)
		y := top + int((1-ndc.Y())/2*float64(vp.H-1)+0.5)
		p.stamp(x, y, vp.X, top, vp.X+vp.W, top+vp.H)
	}
	return p.tex
}

func (p *DotPass) stamp(x, y, x0, y0, x1, y1 int) {
	for dy := -p.radius; dy <= p.radius; dy++ {
		for dx := -p.radius; dx <= p.radius; dx++ {
			if p.radius > 0 && dx*dx+dy*dy > p.radius*p.radius {
				continue
			}
			px, py := x+dx, y+dy
			if px < x0 || py < y0 || px >= x1 || py >= y1 {
				continue
			}
			p.canvas.Set(px, py)
		}
	}
}

// Bloom widens every lit dot by one dot horizontally, the terminal
// stand-in for a glow pass.
type Bloom struct {
	screen *Screen
	tex    render.Texture
	out    *Canvas
}

func NewBloom(s *Screen) *Bloom {
	tex, c := s.alloc()
	return &Bloom{screen: s, tex: tex, out: c}
}

func (b *Bloom) Resize(w, h int) { b.out.Resize(cells(w, h)) }

func (b *Bloom) Apply(in render.Texture) render.Texture {
	src := b.screen.Canvas(in)
	if src == nil {
		return in
	}
	b.out.CopyFrom(src)
	w, h := src.Dots()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if src.IsSet(x, y) {
				b.out.Set(x-1, y)
				b.out.Set(x+1, y)
			}
		}
	}
	return b.tex
}

// Merge overlays the point texture onto the billboard texture.
type Merge struct {
	screen *Screen
	tex    render.Texture
	out    *Canvas
}

func NewMerge(s *Screen) *Merge {
	tex, c := s.alloc()
	return &Merge{screen: s, tex: tex, out: c}
}

func (m *Merge) Resize(w, h int) { m.out.Resize(cells(w, h)) }

func (m *Merge) Merge(billboard, points render.Texture) render.Texture {
	m.out.Clear()
	if c := m.screen.Canvas(billboard); c != nil {
		m.out.Or(c)
	}
	if c := m.screen.Canvas(points); c != nil {
		m.out.Or(c)
	}
	return m.tex
}
