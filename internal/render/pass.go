package render

import (
	"fmt"

	"github.com/san-kum/attractors/internal/dynamo"
)

// Texture is an opaque handle to a rendered frame. Zero means nothing was
// produced.
type Texture uint32

// Viewport is a pixel rectangle within the framebuffer.
type Viewport struct {
	X, Y, W, H int
}

func FullViewport(w, h int) Viewport { return Viewport{W: w, H: h} }

type Mode int

const (
	Points Mode = iota
	Billboard
	Both
)

func (m Mode) String() string {
	switch m {
	case Points:
		return "points"
	case Billboard:
		return "billboard"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "points":
		return Points, nil
	case "billboard":
		return Billboard, nil
	case "both":
		return Both, nil
	default:
		return Points, fmt.Errorf("unknown render mode: %s", s)
	}
}

type Pass interface {
	Resize(w, h int)
}

// ParticlePass draws a particle set with the given view.
type ParticlePass interface {
	Pass
	Render(particles []dynamo.Sample, view Transform, vp Viewport) Texture
}

// PostPass filters a rendered texture (glow, FXAA).
type PostPass interface {
	Pass
	Apply(in Texture) Texture
}

// Merger blends the billboard and point results in dual mode.
type Merger interface {
	Pass
	Merge(billboard, points Texture) Texture
}
