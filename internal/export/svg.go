// Package export writes rendered particle sets as SVG.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/attractors/internal/dynamo"
	"github.com/san-kum/attractors/internal/render"
	"github.com/san-kum/attractors/internal/viz"
)

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	w, h := canvas.Dots()
	width, height := float64(w)*scale, float64(h)*scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff88">
`, width, height, width, height)

	dotRadius := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// Frame aims a camera so every particle fits the view: it looks at the
// bounding-box centre from along +z, far enough for the bounding sphere.
func Frame(particles []dynamo.Sample) render.Transform {
	t := render.DefaultTransform()
	if len(particles) == 0 {
		return t
	}
	lo, hi := particles[0].Vec3(), particles[0].Vec3()
	for _, p := range particles[1:] {
		v := p.Vec3()
		for i := range v {
			lo[i] = math.Min(lo[i], v[i])
			hi[i] = math.Max(hi[i], v[i])
		}
	}
	centre := lo.Add(hi).Mul(0.5)
	radius := math.Max(hi.Sub(lo).Len()/2, 1e-3)
	dist := radius / math.Sin(mgl64.DegToRad(t.FovY)/2) * 1.05

	t.SetView(centre.Add(mgl64.Vec3{0, 0, dist}), centre)
	t.Near = math.Max(dist-radius*1.1, dist*1e-3)
	t.Far = dist + radius*1.1
	return t
}

// WriteParticles renders particles through view onto a cols x rows braille
// canvas and writes it as SVG.
func WriteParticles(w io.Writer, particles []dynamo.Sample, view render.Transform, cols, rows int, scale float64) error {
	screen := viz.NewScreen()
	pass := viz.NewDotPass(screen, 0)
	pass.Resize(cols*2, rows*4)
	view.SetAspect(float64(cols*2) / float64(rows*4))

	tex := pass.Render(particles, view, render.FullViewport(cols*2, rows*4))
	_, err := io.WriteString(w, CanvasToSVG(screen.Canvas(tex), scale))
	return err
}
