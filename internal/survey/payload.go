// Package survey decodes building survey payloads and maps them onto the
// solar view model.
package survey

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roofsolar/internal/geo"
)

// LatLng is an upstream coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point converts to a GeoPoint.
func (l LatLng) Point() geo.GeoPoint {
	return geo.GeoPoint{Latitude: l.Latitude, Longitude: l.Longitude}
}

// LatLngBox is an upstream sw/ne rectangle.
type LatLngBox struct {
	SW *LatLng `json:"sw,omitempty"`
	NE *LatLng `json:"ne,omitempty"`
}

// Complete reports whether both corners are present.
func (b *LatLngBox) Complete() bool {
	return b != nil && b.SW != nil && b.NE != nil
}

// BBox converts a complete box.
func (b *LatLngBox) BBox() geo.BBox {
	return geo.BBox{SW: b.SW.Point(), NE: b.NE.Point()}
}

// SegmentBox is a segment outline in one of two shapes: an explicit vertex
// list, or a sw/ne rectangle.
type SegmentBox struct {
	Vertices []LatLng
	Rect     LatLngBox
}

// UnmarshalJSON accepts either shape. When both are present the vertex list
// wins.
func (b *SegmentBox) UnmarshalJSON(data []byte) error {
	var raw struct {
		Vertices []LatLng `json:"vertices"`
		SW       *LatLng  `json:"sw"`
		NE       *LatLng  `json:"ne"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "survey: segment bounding box")
	}
	b.Vertices = raw.Vertices
	b.Rect = LatLngBox{SW: raw.SW, NE: raw.NE}
	return nil
}

// MarshalJSON writes whichever shape is populated.
func (b SegmentBox) MarshalJSON() ([]byte, error) {
	if len(b.Vertices) > 0 {
		return json.Marshal(struct {
			Vertices []LatLng `json:"vertices"`
		}{b.Vertices})
	}
	return json.Marshal(b.Rect)
}

// Boundary returns the outline polygon. A rectangle expands to its corners
// in SW, SE, NE, NW order. It returns nil when neither shape is usable.
func (b *SegmentBox) Boundary() []geo.GeoPoint {
	if b == nil {
		return nil
	}
	if len(b.Vertices) > 0 {
		out := make([]geo.GeoPoint, len(b.Vertices))
		for i, v := range b.Vertices {
			out[i] = v.Point()
		}
		return out
	}
	if b.Rect.Complete() {
		return b.Rect.BBox().Corners()
	}
	return nil
}

// SegmentAreaStats is the nested stats block of a roof segment.
type SegmentAreaStats struct {
	AreaMeters2 *float64 `json:"areaMeters2,omitempty"`
}

// RoofSegmentStats is one upstream roof segment.
type RoofSegmentStats struct {
	SegmentIndex              *int              `json:"segmentIndex,omitempty"`
	Index                     *int              `json:"index,omitempty"`
	Center                    *LatLng           `json:"center,omitempty"`
	PlaneHeightAtCenterMeters *float64          `json:"planeHeightAtCenterMeters,omitempty"`
	PitchDegrees              *float64          `json:"pitchDegrees,omitempty"`
	TiltDegrees               *float64          `json:"tiltDegrees,omitempty"`
	AzimuthDegrees            *float64          `json:"azimuthDegrees,omitempty"`
	BoundingBox               *SegmentBox       `json:"boundingBox,omitempty"`
	RoofAreaMeters2           *float64          `json:"roofAreaMeters2,omitempty"`
	Stats                     *SegmentAreaStats `json:"stats,omitempty"`
}

// SolarPanel is one upstream panel placement.
type SolarPanel struct {
	ID                *int     `json:"id,omitempty"`
	SegmentIndex      *int     `json:"segmentIndex,omitempty"`
	Center            *LatLng  `json:"center,omitempty"`
	Orientation       *string  `json:"orientation,omitempty"`
	YearlyEnergyDcKwh *float64 `json:"yearlyEnergyDcKwh,omitempty"`
	YearlyEnergyDc    *float64 `json:"yearlyEnergyDc,omitempty"`
}

// SolarPotential holds the panel and segment lists. Upstream payloads put it
// either under "solarPotential" or directly at the top level.
type SolarPotential struct {
	PanelWidthMeters  *float64           `json:"panelWidthMeters,omitempty"`
	PanelHeightMeters *float64           `json:"panelHeightMeters,omitempty"`
	RoofSegmentStats  []RoofSegmentStats `json:"roofSegmentStats,omitempty"`
	SolarPanels       []SolarPanel       `json:"solarPanels,omitempty"`
}

// BuildingSurvey is the upstream payload. Every field is optional.
type BuildingSurvey struct {
	Center         *LatLng         `json:"center,omitempty"`
	BoundingBox    *LatLngBox      `json:"boundingBox,omitempty"`
	SolarPotential *SolarPotential `json:"solarPotential,omitempty"`

	// TopLevel carries potential fields found beside, rather than inside,
	// solarPotential.
	TopLevel SolarPotential `json:"-"`
}

// UnmarshalJSON decodes both nestings.
func (s *BuildingSurvey) UnmarshalJSON(data []byte) error {
	type plain BuildingSurvey
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &p.TopLevel); err != nil {
		return err
	}
	*s = BuildingSurvey(p)
	return nil
}

// Decode reads one survey payload.
func Decode(r io.Reader) (*BuildingSurvey, error) {
	var s BuildingSurvey
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, eris.Wrap(err, "survey: decode payload")
	}
	return &s, nil
}
