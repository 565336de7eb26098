package geo

import "math"

// MetersPerDegLat is the length of one degree of latitude.
const MetersPerDegLat = 111132.0

// MetersPerDegLon returns the length of one degree of longitude at lat.
func MetersPerDegLon(lat float64) float64 {
	return 111320 * math.Cos(lat*math.Pi/180)
}

// Projector maps geographic points into a local east/north metric frame
// anchored at Origin. It is an equirectangular approximation and is only
// accurate over a few hundred metres, which is the scale of one building.
// Do not use it for anything wider.
type Projector struct {
	Origin  GeoPoint
	mPerLon float64
}

// NewProjector builds a projector anchored at origin.
func NewProjector(origin GeoPoint) Projector {
	return Projector{Origin: origin, mPerLon: MetersPerDegLon(origin.Latitude)}
}

// ToLocal returns x (metres east) and z (metres north) of p relative to the origin.
func (pr Projector) ToLocal(p GeoPoint) (x, z float64) {
	x = (p.Longitude - pr.Origin.Longitude) * pr.mPerLon
	z = (p.Latitude - pr.Origin.Latitude) * MetersPerDegLat
	return x, z
}

// ToLocalVec is ToLocal lifted onto the horizontal plane (y = 0).
func (pr Projector) ToLocalVec(p GeoPoint) Vec3 {
	x, z := pr.ToLocal(p)
	return Vec3{X: x, Z: z}
}

// ToGeo is the exact inverse of ToLocal.
func (pr Projector) ToGeo(x, z float64) GeoPoint {
	lng := pr.Origin.Longitude
	if pr.mPerLon != 0 {
		lng += x / pr.mPerLon
	}
	return GeoPoint{
		Latitude:  pr.Origin.Latitude + z/MetersPerDegLat,
		Longitude: lng,
	}
}
