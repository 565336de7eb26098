package geo

import "math"

// minCos keeps slope-corrected distances finite on near-vertical planes.
const minCos = 1e-6

// PlaneBasis is the orthonormal frame of one sloped roof facet.
type PlaneBasis struct {
	// Across is the horizontal axis perpendicular to the slope (u).
	Across Vec3
	// Down is the in-plane downslope axis (v).
	Down Vec3
	// Normal points away from the roof surface.
	Normal Vec3
	// SlopeH is Down projected onto the horizontal plane, unit length.
	SlopeH Vec3
	// TiltRad is the tilt from horizontal.
	TiltRad float64
}

// NewPlaneBasis builds the frame for a plane tilted tiltDeg from horizontal
// whose downslope faces azimuthDeg (0 = north, clockwise).
func NewPlaneBasis(tiltDeg, azimuthDeg float64) PlaneBasis {
	t := tiltDeg * math.Pi / 180
	a := azimuthDeg * math.Pi / 180

	slopeH := Vec3{X: math.Sin(a), Z: math.Cos(a)}
	sinT, cosT := math.Sin(t), math.Cos(t)

	n := Up.Scale(cosT).Add(slopeH.Scale(sinT)).Normalize()
	d := slopeH.Scale(cosT).Sub(Up.Scale(sinT)).Normalize()
	c := d.Cross(n).Normalize()

	return PlaneBasis{Across: c, Down: d, Normal: n, SlopeH: slopeH, TiltRad: t}
}

// CosTilt is cos(tilt) clamped away from zero.
func (b PlaneBasis) CosTilt() float64 {
	return math.Max(math.Cos(b.TiltRad), minCos)
}

// Project splits a horizontal displacement into the across-slope distance u,
// the in-plane downslope distance v, and its horizontal part vH.
func (b PlaneBasis) Project(disp Vec3) (u, v, vH float64) {
	h := disp.Horizontal()
	u = h.Dot(b.Across)
	vH = h.Dot(b.SlopeH)
	v = vH / b.CosTilt()
	return u, v, vH
}

// DropAlongSlope is the height change over a horizontal downslope run vH.
func (b PlaneBasis) DropAlongSlope(vH float64) float64 {
	return -vH * math.Tan(b.TiltRad)
}
