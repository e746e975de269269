package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type PiPPosition int

const (
	NoPiP PiPPosition = iota
	PiPLowerLeft
	PiPLowerRight
	PiPUpperLeft
	PiPUpperRight
)

func (p PiPPosition) String() string {
	switch p {
	case NoPiP:
		return "none"
	case PiPLowerLeft:
		return "lower-left"
	case PiPLowerRight:
		return "lower-right"
	case PiPUpperLeft:
		return "upper-left"
	case PiPUpperRight:
		return "upper-right"
	default:
		return fmt.Sprintf("PiPPosition(%d)", int(p))
	}
}

func ParsePiPPosition(s string) (PiPPosition, error) {
	for p := NoPiP; p <= PiPUpperRight; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	if s == "" {
		return NoPiP, nil
	}
	return NoPiP, fmt.Errorf("unknown pip position: %s", s)
}

// TFSettings drive the cockpit view, a camera that rides the trajectory.
//
// The camera sits on the sample Tail of the way back through the buffer and
// looks at the newest sample; InvertView swaps the two. MoveHead and
// MoveTail scale the head-to-tail vector to offset target and eye, and
// Rotation turns both around the target.
type TFSettings struct {
	Tail       float64 // [0, 1]
	InvertView bool
	MoveHead   float64
	MoveTail   float64
	Rotation   mgl64.Quat

	PiP       PiPPosition
	PiPZoom   float64 // fraction of the short screen side
	InvertPiP bool    // full screen shows the main view, PiP the cockpit

	PerspAngle float64 // degrees
	PerspNear  float64
}

func DefaultTFSettings() TFSettings {
	return TFSettings{
		Tail:       0.05,
		MoveHead:   -1,
		MoveTail:   0,
		Rotation:   mgl64.QuatIdent(),
		PiP:        NoPiP,
		PiPZoom:    0.3,
		PerspAngle: 65,
		PerspNear:  0.001,
	}
}

var ErrInvalidTF = errors.New("invalid cockpit settings")

func (s TFSettings) Validate() error {
	if !(s.Tail >= 0 && s.Tail <= 1) {
		return fmt.Errorf("%w: tail %v outside [0, 1]", ErrInvalidTF, s.Tail)
	}
	if s.MoveHead == s.MoveTail {
		return fmt.Errorf("%w: head and tail offsets coincide", ErrInvalidTF)
	}
	if math.IsNaN(s.MoveHead) || math.IsNaN(s.MoveTail) || math.IsInf(s.MoveHead, 0) || math.IsInf(s.MoveTail, 0) {
		return fmt.Errorf("%w: non-finite offset", ErrInvalidTF)
	}
	if !(s.PerspAngle > 0 && s.PerspAngle < 180) {
		return fmt.Errorf("%w: perspective angle %v", ErrInvalidTF, s.PerspAngle)
	}
	if !(s.PerspNear > 0) {
		return fmt.Errorf("%w: near plane %v", ErrInvalidTF, s.PerspNear)
	}
	if s.PiP != NoPiP && !(s.PiPZoom > 0 && s.PiPZoom <= 1) {
		return fmt.Errorf("%w: pip zoom %v", ErrInvalidTF, s.PiPZoom)
	}
	if s.Rotation.Len() == 0 {
		return fmt.Errorf("%w: zero rotation quaternion", ErrInvalidTF)
	}
	return nil
}

// TailIndex maps Tail onto a ring lookup index for a buffer of queueSize
// slots, clamped to [1, queueSize-1].
func (s TFSettings) TailIndex(queueSize int) int {
	buffSize := queueSize - 1
	if buffSize < 1 {
		return 1
	}
	idx := int(s.Tail*float64(buffSize) + 0.5)
	if idx < 1 {
		return 1
	}
	if idx > buffSize {
		return buffSize
	}
	return idx
}

// Camera derives the cockpit eye and target from the newest sample head and
// the older sample tail.
func (s TFSettings) Camera(head, tail mgl64.Vec3) (pov, target mgl64.Vec3) {
	pov, target = tail, head
	if s.InvertView {
		pov, target = head, tail
	}

	d := pov.Sub(target)
	dirH := d.Add(d.Mul(s.MoveHead))
	dirT := d.Add(d.Mul(s.MoveTail))

	m := mgl64.Translate3D(target.X(), target.Y(), target.Z()).Mul4(s.Rotation.Normalize().Mat4())
	pov = m.Mul4x1(dirT.Vec4(1)).Vec3()
	target = m.Mul4x1(dirH.Vec4(1)).Vec3()
	return pov, target
}

// Transform builds the cockpit camera for a w x h framebuffer. far is
// shared with the main view.
func (s TFSettings) Transform(head, tail mgl64.Vec3, w, h int, far float64) Transform {
	pov, target := s.Camera(head, tail)
	t := DefaultTransform()
	t.SetView(pov, target)
	aspect := 1.0
	if w > 0 && h > 0 {
		aspect = float64(w) / float64(h)
	}
	t.SetPerspective(s.PerspAngle, aspect, s.PerspNear, far)
	return t
}

// Viewport places the picture-in-picture rectangle in a w x h framebuffer.
func (s TFSettings) Viewport(w, h int) Viewport {
	side := w
	if h < side {
		side = h
	}
	size := int(float64(side) * s.PiPZoom)
	vp := Viewport{W: size, H: size}
	switch s.PiP {
	case PiPLowerRight:
		vp.X = w - size
	case PiPUpperLeft:
		vp.Y = h - size
	case PiPUpperRight:
		vp.X, vp.Y = w-size, h-size
	}
	return vp
}
