// Package geo holds the building-scale coordinate math shared by the roof
// geometry, export, and storage packages.
package geo

import "math"

// GeoPoint is a WGS84 position in degrees. No altitude.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// IsFinite reports whether both coordinates are real numbers.
func (p GeoPoint) IsFinite() bool {
	return !math.IsNaN(p.Latitude) && !math.IsNaN(p.Longitude) &&
		!math.IsInf(p.Latitude, 0) && !math.IsInf(p.Longitude, 0)
}

// BBox is a geographic rectangle given by its south-west and north-east corners.
type BBox struct {
	SW GeoPoint `json:"sw"`
	NE GeoPoint `json:"ne"`
}

// Corners expands the box to four corners in SW, SE, NE, NW order.
func (b BBox) Corners() []GeoPoint {
	return []GeoPoint{
		{Latitude: b.SW.Latitude, Longitude: b.SW.Longitude},
		{Latitude: b.SW.Latitude, Longitude: b.NE.Longitude},
		{Latitude: b.NE.Latitude, Longitude: b.NE.Longitude},
		{Latitude: b.NE.Latitude, Longitude: b.SW.Longitude},
	}
}

// Center returns the midpoint of the box.
func (b BBox) Center() GeoPoint {
	return GeoPoint{
		Latitude:  (b.SW.Latitude + b.NE.Latitude) / 2,
		Longitude: (b.SW.Longitude + b.NE.Longitude) / 2,
	}
}

// Contains reports whether p lies inside the box, edges included.
func (b BBox) Contains(p GeoPoint) bool {
	return p.Latitude >= b.SW.Latitude && p.Latitude <= b.NE.Latitude &&
		p.Longitude >= b.SW.Longitude && p.Longitude <= b.NE.Longitude
}

// Centroid returns the arithmetic mean of the points, or the zero point for
// an empty slice.
func Centroid(points []GeoPoint) GeoPoint {
	if len(points) == 0 {
		return GeoPoint{}
	}
	var lat, lng float64
	for _, p := range points {
		lat += p.Latitude
		lng += p.Longitude
	}
	n := float64(len(points))
	return GeoPoint{Latitude: lat / n, Longitude: lng / n}
}

// BoundsAround returns the box of the given radius in metres centred on p.
// Used for imagery overlays requested by radius.
func BoundsAround(p GeoPoint, radiusM float64) BBox {
	latDelta := radiusM / MetersPerDegLat
	lngDelta := radiusM / (111320 * math.Max(math.Cos(p.Latitude*math.Pi/180), 1e-6))
	return BBox{
		SW: GeoPoint{Latitude: p.Latitude - latDelta, Longitude: p.Longitude - lngDelta},
		NE: GeoPoint{Latitude: p.Latitude + latDelta, Longitude: p.Longitude + lngDelta},
	}
}
