package attractors

import "github.com/san-kum/attractors/internal/dynamo"

type Rossler struct{ a, b, c float64 }

func NewRossler() *Rossler       { return &Rossler{0.2, 0.2, 5.7} }
func (r *Rossler) StateDim() int { return 3 }

// Derive calculates the Rossler attractor derivatives.
func (r *Rossler) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{-s[1] - s[2], s[0] + r.a*s[1], r.b + s[2]*(s[0]-r.c)}
}
func (r *Rossler) DefaultState() dynamo.State { return dynamo.State{1.0, 1.0, 1.0} }
func (r *Rossler) GetParams() map[string]float64 {
	return map[string]float64{"a": r.a, "b": r.b, "c": r.c}
}
func (r *Rossler) SetParam(n string, v float64) error {
	if err := checkValue(n, v); err != nil {
		return err
	}
	switch n {
	case "a":
		r.a = v
	case "b":
		r.b = v
	case "c":
		r.c = v
	default:
		return unknownParam(n)
	}
	return nil
}

// HyperRossler is the 4D hyperchaotic Rossler system.
// State: [x, y, z, w]. The fourth component is folded into the sample's Z.
type HyperRossler struct{ a, b, c, d float64 }

func NewHyperRossler() *HyperRossler  { return &HyperRossler{0.25, 3.0, 0.5, 0.05} }
func (h *HyperRossler) StateDim() int { return 4 }

func (h *HyperRossler) Derive(s dynamo.State, _ float64) dynamo.State {
	x, y, z, w := s[0], s[1], s[2], s[3]
	return dynamo.State{
		-y - z,
		x + h.a*y + w,
		h.b + x*z,
		-h.c*z + h.d*w,
	}
}

func (h *HyperRossler) Project(s dynamo.State) dynamo.Sample {
	return dynamo.Sample{X: s[0], Y: s[1], Z: s[2] + s[3]}
}

func (h *HyperRossler) DefaultState() dynamo.State { return dynamo.State{-10, -6, 0, 10} }
func (h *HyperRossler) GetParams() map[string]float64 {
	return map[string]float64{"a": h.a, "b": h.b, "c": h.c, "d": h.d}
}
func (h *HyperRossler) SetParam(n string, v float64) error {
	if err := checkValue(n, v); err != nil {
		return err
	}
	switch n {
	case "a":
		h.a = v
	case "b":
		h.b = v
	case "c":
		h.c = v
	case "d":
		h.d = v
	default:
		return unknownParam(n)
	}
	return nil
}
