package attractors

import (
	"math"

	"github.com/san-kum/attractors/internal/dynamo"
)

// Aizawa implements the Aizawa (Langford) attractor.
type Aizawa struct{ a, b, c, d, e, f float64 }

func NewAizawa() *Aizawa        { return &Aizawa{0.95, 0.7, 0.6, 3.5, 0.25, 0.1} }
func (z *Aizawa) StateDim() int { return 3 }

func (z *Aizawa) Derive(s dynamo.State, _ float64) dynamo.State {
	x, y, w := s[0], s[1], s[2]
	return dynamo.State{
		(w-z.b)*x - z.d*y,
		z.d*x + (w-z.b)*y,
		z.c + z.a*w - w*w*w/3 - (x*x+y*y)*(1+z.e*w) + z.f*w*x*x*x,
	}
}
func (z *Aizawa) DefaultState() dynamo.State { return dynamo.State{0.1, 0, 0} }
func (z *Aizawa) GetParams() map[string]float64 {
	return map[string]float64{"a": z.a, "b": z.b, "c": z.c, "d": z.d, "e": z.e, "f": z.f}
}
func (z *Aizawa) SetParam(n string, v float64) error {
	if err := checkValue(n, v); err != nil {
		return err
	}
	switch n {
	case "a":
		z.a = v
	case "b":
		z.b = v
	case "c":
		z.c = v
	case "d":
		z.d = v
	case "e":
		z.e = v
	case "f":
		z.f = v
	default:
		return unknownParam(n)
	}
	return nil
}

// Thomas implements Thomas' cyclically symmetric attractor.
type Thomas struct{ b float64 }

func NewThomas() *Thomas        { return &Thomas{0.208186} }
func (t *Thomas) StateDim() int { return 3 }

func (t *Thomas) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{
		math.Sin(s[1]) - t.b*s[0],
		math.Sin(s[2]) - t.b*s[1],
		math.Sin(s[0]) - t.b*s[2],
	}
}
func (t *Thomas) DefaultState() dynamo.State    { return dynamo.State{1.1, 1.1, -0.01} }
func (t *Thomas) GetParams() map[string]float64 { return map[string]float64{"b": t.b} }
func (t *Thomas) SetParam(n string, v float64) error {
	if err := checkValue(n, v); err != nil {
		return err
	}
	if n != "b" {
		return unknownParam(n)
	}
	t.b = v
	return nil
}

// Halvorsen implements the cyclically symmetric Halvorsen attractor.
type Halvorsen struct{ a float64 }

func NewHalvorsen() *Halvorsen     { return &Halvorsen{1.89} }
func (h *Halvorsen) StateDim() int { return 3 }

func (h *Halvorsen) Derive(s dynamo.State, _ float64) dynamo.State {
	x, y, z := s[0], s[1], s[2]
	return dynamo.State{
		-h.a*x - 4*y - 4*z - y*y,
		-h.a*y - 4*z - 4*x - z*z,
		-h.a*z - 4*x - 4*y - x*x,
	}
}
func (h *Halvorsen) DefaultState() dynamo.State    { return dynamo.State{-1.48, -1.51, 2.04} }
func (h *Halvorsen) GetParams() map[string]float64 { return map[string]float64{"a": h.a} }
func (h *Halvorsen) SetParam(n string, v float64) error {
	if err := checkValue(n, v); err != nil {
		return err
	}
	if n != "a" {
		return unknownParam(n)
	}
	h.a = v
	return nil
}

// Chen implements the Chen attractor, a dual of Lorenz.
type Chen struct{ a, b, c float64 }

func NewChen() *Chen          { return &Chen{35, 3, 28} }
func (c *Chen) StateDim() int { return 3 }

func (c *Chen) Derive(s dynamo.State, _ float64) dynamo.State {
	x, y, z := s[0], s[1], s[2]
	return dynamo.State{
		c.a * (y - x),
		(c.c-c.a)*x - x*z + c.c*y,
		x*y - c.b*z,
	}
}
func (c *Chen) DefaultState() dynamo.State { return dynamo.State{-10, 0, 37} }
func (c *Chen) GetParams() map[string]float64 {
	return map[string]float64{"a": c.a, "b": c.b, "c": c.c}
}
func (c *Chen) SetParam(n string, v float64) error {
	if err := checkValue(n, v); err != nil {
		return err
	}
	switch n {
	case "a":
		c.a = v
	case "b":
		c.b = v
	case "c":
		c.c = v
	default:
		return unknownParam(n)
	}
	return nil
}

// Dadras implements the Dadras-Momeni attractor.
type Dadras struct{ a, b, c, d, e float64 }

func NewDadras() *Dadras        { return &Dadras{3, 2.7, 1.7, 2, 9} }
func (d *Dadras) StateDim() int { return 3 }

func (d *Dadras) Derive(s dynamo.State, _ float64) dynamo.State {
	x, y, z := s[0], s[1], s[2]
	return dynamo.State{
		y - d.a*x + d.b*y*z,
		d.c*y - x*z + z,
		d.d*x*y - d.e*z,
	}
}
func (d *Dadras) DefaultState() dynamo.State { return dynamo.State{1.1, 2.1, -2} }
func (d *Dadras) GetParams() map[string]float64 {
	return map[string]float64{"a": d.a, "b": d.b, "c": d.c, "d": d.d, "e": d.e}
}
func (d *Dadras) SetParam(n string, v float64) error {
	if err := checkValue(n, v); err != nil {
		return err
	}
	switch n {
	case "a":
		d.a = v
	case "b":
		d.b = v
	case "c":
		d.c = v
	case "d":
		d.d = v
	case "e":
		d.e = v
	default:
		return unknownParam(n)
	}
	return nil
}
