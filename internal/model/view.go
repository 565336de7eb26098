package model

import (
	"github.com/sells-group/roofsolar/internal/geo"
)

// Orientation says which physical panel edge runs across the slope.
type Orientation string

const (
	OrientationPortrait  Orientation = "PORTRAIT"
	OrientationLandscape Orientation = "LANDSCAPE"
)

// ParseOrientation maps upstream strings onto an Orientation. Anything other
// than LANDSCAPE is treated as PORTRAIT.
func ParseOrientation(s string) Orientation {
	if Orientation(s) == OrientationLandscape {
		return OrientationLandscape
	}
	return OrientationPortrait
}

// Default panel geometry used when the survey omits it.
const (
	DefaultPanelWidthM     = 1.1
	DefaultPanelHeightM    = 1.8
	DefaultPanelThicknessM = 0.035
)

// PanelDimensions is the physical size shared by every panel in one view.
// Width runs across the slope in portrait orientation.
type PanelDimensions struct {
	WidthMeters     float64 `json:"width_meters" yaml:"width_meters"`
	HeightMeters    float64 `json:"height_meters" yaml:"height_meters"`
	ThicknessMeters float64 `json:"thickness_meters,omitempty" yaml:"thickness_meters"`
}

// DefaultPanelDimensions returns the fallback panel size.
func DefaultPanelDimensions() PanelDimensions {
	return PanelDimensions{
		WidthMeters:     DefaultPanelWidthM,
		HeightMeters:    DefaultPanelHeightM,
		ThicknessMeters: DefaultPanelThicknessM,
	}
}

// Thickness returns the visual thickness, falling back to the default.
func (d PanelDimensions) Thickness() float64 {
	if d.ThicknessMeters > 0 {
		return d.ThicknessMeters
	}
	return DefaultPanelThicknessM
}

// Area is the panel face area in square metres.
func (d PanelDimensions) Area() float64 {
	return d.WidthMeters * d.HeightMeters
}

// Oriented returns the extent along the across-slope (u) and in-plane
// downslope (v) axes for the given orientation.
func (d PanelDimensions) Oriented(o Orientation) (alongU, alongV float64) {
	if o == OrientationLandscape {
		return d.HeightMeters, d.WidthMeters
	}
	return d.WidthMeters, d.HeightMeters
}

// Segment is one planar roof facet.
type Segment struct {
	ID                        int            `json:"id"`
	Center                    geo.GeoPoint   `json:"center"`
	PlaneHeightAtCenterMeters float64        `json:"plane_height_at_center_meters"`
	TiltDegrees               float64        `json:"tilt_degrees"`
	AzimuthDegrees            float64        `json:"azimuth_degrees"`
	Boundary                  []geo.GeoPoint `json:"boundary,omitempty"`
	AreaMeters2               *float64       `json:"area_meters2,omitempty"`
	AvgFlux                   *float64       `json:"avg_flux,omitempty"`
}

// HasBoundary reports whether the boundary is usable as a polygon.
func (s Segment) HasBoundary() bool {
	return len(s.Boundary) >= 3
}

// PanelPlacement is one installed panel. SegmentIndex refers to Segment.ID.
type PanelPlacement struct {
	ID                int          `json:"id"`
	SegmentIndex      int          `json:"segment_index"`
	Center            geo.GeoPoint `json:"center"`
	Orientation       Orientation  `json:"orientation"`
	YearlyEnergyDcKwh *float64     `json:"yearly_energy_dc_kwh,omitempty"`
}

// SolarViewData is the normalized roof model for one building.
type SolarViewData struct {
	Segments        []Segment        `json:"segments"`
	Panels          []PanelPlacement `json:"panels"`
	PanelDimensions PanelDimensions  `json:"panel_dimensions"`
	Origin          *geo.GeoPoint    `json:"origin,omitempty"`
}

// ResolveOrigin returns the fixed origin if set, otherwise the centroid of the
// segment centres. Callers resolve it once per pass and pass it along.
func (v SolarViewData) ResolveOrigin() geo.GeoPoint {
	if v.Origin != nil {
		return *v.Origin
	}
	centers := make([]geo.GeoPoint, len(v.Segments))
	for i, s := range v.Segments {
		centers[i] = s.Center
	}
	return geo.Centroid(centers)
}

// SegmentByID indexes segments by id. Later duplicates win.
func (v SolarViewData) SegmentByID() map[int]Segment {
	m := make(map[int]Segment, len(v.Segments))
	for _, s := range v.Segments {
		m[s.ID] = s
	}
	return m
}

// Clone returns a deep copy so enrichment never mutates the caller's view.
func (v SolarViewData) Clone() SolarViewData {
	out := SolarViewData{
		Segments:        make([]Segment, len(v.Segments)),
		Panels:          make([]PanelPlacement, len(v.Panels)),
		PanelDimensions: v.PanelDimensions,
	}
	if v.Origin != nil {
		o := *v.Origin
		out.Origin = &o
	}
	for i, s := range v.Segments {
		s.Boundary = append([]geo.GeoPoint(nil), s.Boundary...)
		s.AreaMeters2 = copyFloat(s.AreaMeters2)
		s.AvgFlux = copyFloat(s.AvgFlux)
		out.Segments[i] = s
	}
	for i, p := range v.Panels {
		p.YearlyEnergyDcKwh = copyFloat(p.YearlyEnergyDcKwh)
		out.Panels[i] = p
	}
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
