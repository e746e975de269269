package analysis

import (
	"fmt"

	"github.com/san-kum/attractors/internal/dynamo"
)

type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	default:
		return AxisX, fmt.Errorf("unknown axis: %s", s)
	}
}

func (a Axis) of(s dynamo.Sample) float64 {
	switch a {
	case AxisX:
		return s.X
	case AxisY:
		return s.Y
	default:
		return s.Z
	}
}

// plane returns the two axes spanning the section plane.
func (a Axis) plane() (u, v Axis) {
	switch a {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}

// Crossing is a point where the trajectory passed through the section
// plane, in the plane's own coordinates.
type Crossing struct{ U, V float64 }

// PoincareSection records the upward crossings of axis through level
// along consecutive samples, linearly interpolated between the two
// samples straddling the plane.
func PoincareSection(samples []dynamo.Sample, axis Axis, level float64) []Crossing {
	if len(samples) < 2 {
		return nil
	}
	u, v := axis.plane()

	var out []Crossing
	prev := samples[0]
	for _, cur := range samples[1:] {
		a, b := axis.of(prev), axis.of(cur)
		if a < level && b >= level {
			frac := (level - a) / (b - a)
			out = append(out, Crossing{
				U: lerp(u.of(prev), u.of(cur), frac),
				V: lerp(v.of(prev), v.of(cur), frac),
			})
		}
		prev = cur
	}
	return out
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
