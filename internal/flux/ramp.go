package flux

import (
	"fmt"
	"math"
)

// Ramp maps flux values onto a blue-to-yellow colour scale spanning the
// observed range.
type Ramp struct {
	Min float64
	Max float64
	ok  bool
}

// NewRamp spans the finite values in vs.
func NewRamp(vs []float64) Ramp {
	r := Ramp{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
		r.ok = true
	}
	if !r.ok {
		return Ramp{}
	}
	return r
}

// Empty reports whether the ramp saw no finite values.
func (r Ramp) Empty() bool { return !r.ok }

// Position returns v's place on the ramp in [0, 1]. A flat range maps to 0.5.
func (r Ramp) Position(v float64) float64 {
	if r.Max == r.Min {
		return 0.5
	}
	t := (v - r.Min) / (r.Max - r.Min)
	return math.Max(0, math.Min(1, t))
}

// Hue interpolates from 210 (cool) to 50 (warm).
func (r Ramp) Hue(v float64) float64 {
	return 210 + (50-210)*r.Position(v)
}

// Colour returns the hex RGB colour for v at 70% saturation, 55% lightness.
func (r Ramp) Colour(v float64) string {
	red, green, blue := hslToRGB(r.Hue(v), 0.70, 0.55)
	return fmt.Sprintf("#%02x%02x%02x", red, green, blue)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r, g, b float64
	switch {
	case hp < 1:
		r, g = c, x
	case hp < 2:
		r, g = x, c
	case hp < 3:
		g, b = c, x
	case hp < 4:
		g, b = x, c
	case hp < 5:
		r, b = x, c
	default:
		r, b = c, x
	}
	m := l - c/2
	to := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return to(r), to(g), to(b)
}
