package geo

import "math"

// Vec3 is a local-frame vector: X east, Y up, Z north.
type Vec3 struct {
	X, Y, Z float64
}

// Up is the unit vertical.
var Up = Vec3{Y: 1}

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Norm() float64 { return math.Sqrt(a.Dot(a)) }

// Horizontal drops the vertical component.
func (a Vec3) Horizontal() Vec3 { return Vec3{X: a.X, Z: a.Z} }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// Normalize returns the unit vector along a. The zero vector is returned unchanged.
func (a Vec3) Normalize() Vec3 {
	n := a.Norm()
	if n == 0 {
		return a
	}
	return a.Scale(1 / n)
}
