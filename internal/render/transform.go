package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a look-at camera with a perspective projection.
type Transform struct {
	POV    mgl64.Vec3
	Target mgl64.Vec3
	Up     mgl64.Vec3

	FovY   float64 // degrees
	Aspect float64
	Near   float64
	Far    float64
}

func DefaultTransform() Transform {
	return Transform{
		POV:    mgl64.Vec3{0, 0, 60},
		Target: mgl64.Vec3{0, 0, 0},
		Up:     mgl64.Vec3{0, 1, 0},
		FovY:   35,
		Aspect: 1,
		Near:   0.1,
		Far:    1000,
	}
}

func (t *Transform) SetAspect(aspect float64) { t.Aspect = aspect }

// SetPerspective sets every projection parameter at once.
func (t *Transform) SetPerspective(fovY, aspect, near, far float64) {
	t.FovY, t.Aspect, t.Near, t.Far = fovY, aspect, near, far
}

func (t *Transform) SetView(pov, target mgl64.Vec3) {
	t.POV, t.Target = pov, target
}

// Degenerate reports whether the eye sits on the target, which leaves the
// view direction undefined.
func (t Transform) Degenerate() bool {
	return t.POV.Sub(t.Target).LenSqr() < 1e-18
}

func (t Transform) View() mgl64.Mat4 {
	return mgl64.LookAtV(t.POV, t.Target, t.Up)
}

func (t Transform) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(t.FovY), t.Aspect, t.Near, t.Far)
}

func (t Transform) ViewProjection() mgl64.Mat4 {
	return t.Projection().Mul4(t.View())
}

// Project maps a world point to normalized device coordinates. ok is false
// when the point is behind the eye, outside the frustum, or the view is
// degenerate.
func (t Transform) Project(p mgl64.Vec3) (ndc mgl64.Vec3, ok bool) {
	if t.Degenerate() {
		return mgl64.Vec3{}, false
	}
	return projectWith(t.ViewProjection(), p)
}

func projectWith(vp mgl64.Mat4, p mgl64.Vec3) (mgl64.Vec3, bool) {
	clip := vp.Mul4x1(p.Vec4(1))
	w := clip.W()
	if !(w > 0) {
		return mgl64.Vec3{}, false
	}
	ndc := clip.Vec3().Mul(1 / w)
	for _, c := range ndc {
		if !(math.Abs(c) <= 1) {
			return ndc, false
		}
	}
	return ndc, true
}

// Projector caches the view-projection matrix for per-particle use.
type Projector struct {
	vp    mgl64.Mat4
	valid bool
}

func (t Transform) Projector() Projector {
	return Projector{vp: t.ViewProjection(), valid: !t.Degenerate()}
}

func (p Projector) Project(v mgl64.Vec3) (mgl64.Vec3, bool) {
	if !p.valid {
		return mgl64.Vec3{}, false
	}
	return projectWith(p.vp, v)
}
