package survey

import (
	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/model"
)

// FieldRule documents one source path, the view field it fills, and the value
// used when every source is absent.
type FieldRule struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Default string `json:"default"`
}

var rules = []FieldRule{
	{"solarPotential.panelWidthMeters", "PanelDimensions.WidthMeters", "1.1"},
	{"solarPotential.panelHeightMeters", "PanelDimensions.HeightMeters", "1.8"},
	{"-", "PanelDimensions.ThicknessMeters", "0.035"},
	{"roofSegmentStats[].segmentIndex | index", "Segment.ID", "position in list"},
	{"roofSegmentStats[].center", "Segment.Center", "building center, else (0, 0)"},
	{"roofSegmentStats[].planeHeightAtCenterMeters", "Segment.PlaneHeightAtCenterMeters", "0"},
	{"roofSegmentStats[].pitchDegrees | tiltDegrees", "Segment.TiltDegrees", "0"},
	{"roofSegmentStats[].azimuthDegrees", "Segment.AzimuthDegrees", "180"},
	{"roofSegmentStats[].boundingBox.vertices | sw+ne", "Segment.Boundary", "none"},
	{"roofSegmentStats[].roofAreaMeters2 | stats.areaMeters2", "Segment.AreaMeters2", "none"},
	{"solarPanels[].id", "PanelPlacement.ID", "position in list"},
	{"solarPanels[].segmentIndex", "PanelPlacement.SegmentIndex", "0"},
	{"solarPanels[].center", "PanelPlacement.Center", "building center, else (0, 0)"},
	{"solarPanels[].orientation", "PanelPlacement.Orientation", "PORTRAIT"},
	{"solarPanels[].yearlyEnergyDcKwh | yearlyEnergyDc", "PanelPlacement.YearlyEnergyDcKwh", "none"},
	{"center", "SolarViewData.Origin", "none"},
}

// Rules returns the mapping table applied by Map. Each lookup within a
// source path tries alternatives left to right. List fields are read from
// solarPotential first, then from the top level.
func Rules() []FieldRule {
	out := make([]FieldRule, len(rules))
	copy(out, rules)
	return out
}

// Map normalizes a survey into a view. When no segment is present but the
// building bounding box is, one flat segment covering the box is synthesized.
func Map(s *BuildingSurvey) model.SolarViewData {
	if s == nil {
		s = &BuildingSurvey{}
	}
	sp := s.potential()

	view := model.SolarViewData{
		PanelDimensions: model.PanelDimensions{
			WidthMeters:     valueOr(sp.PanelWidthMeters, model.DefaultPanelWidthM),
			HeightMeters:    valueOr(sp.PanelHeightMeters, model.DefaultPanelHeightM),
			ThicknessMeters: model.DefaultPanelThicknessM,
		},
	}

	var building *geo.GeoPoint
	if s.Center != nil {
		c := s.Center.Point()
		building = &c
		view.Origin = &c
	}
	centerOr := func(c *LatLng) geo.GeoPoint {
		switch {
		case c != nil:
			return c.Point()
		case building != nil:
			return *building
		}
		return geo.GeoPoint{}
	}

	for i, rs := range s.segmentList() {
		view.Segments = append(view.Segments, model.Segment{
			ID:                        firstInt(i, rs.SegmentIndex, rs.Index),
			Center:                    centerOr(rs.Center),
			PlaneHeightAtCenterMeters: valueOr(rs.PlaneHeightAtCenterMeters, 0),
			TiltDegrees:               valueOr(firstFloat(rs.PitchDegrees, rs.TiltDegrees), 0),
			AzimuthDegrees:            valueOr(rs.AzimuthDegrees, 180),
			Boundary:                  rs.BoundingBox.Boundary(),
			AreaMeters2:               segmentArea(rs),
		})
	}

	for i, p := range s.panelList() {
		orientation := model.OrientationPortrait
		if p.Orientation != nil {
			orientation = model.ParseOrientation(*p.Orientation)
		}
		view.Panels = append(view.Panels, model.PanelPlacement{
			ID:                firstInt(i, p.ID),
			SegmentIndex:      firstInt(0, p.SegmentIndex),
			Center:            centerOr(p.Center),
			Orientation:       orientation,
			YearlyEnergyDcKwh: copyOf(firstFloat(p.YearlyEnergyDcKwh, p.YearlyEnergyDc)),
		})
	}

	if len(view.Segments) == 0 && s.BoundingBox.Complete() {
		box := s.BoundingBox.BBox()
		view.Segments = append(view.Segments, model.Segment{
			ID:             0,
			Center:         box.Center(),
			TiltDegrees:    0,
			AzimuthDegrees: 180,
			Boundary:       box.Corners(),
		})
	}
	return view
}

// potential returns the block the panel dimensions are read from: the nested
// solarPotential when present, else the top level.
func (s *BuildingSurvey) potential() SolarPotential {
	if s.SolarPotential != nil {
		return *s.SolarPotential
	}
	return s.TopLevel
}

func (s *BuildingSurvey) segmentList() []RoofSegmentStats {
	if s.SolarPotential != nil && s.SolarPotential.RoofSegmentStats != nil {
		return s.SolarPotential.RoofSegmentStats
	}
	return s.TopLevel.RoofSegmentStats
}

func (s *BuildingSurvey) panelList() []SolarPanel {
	if s.SolarPotential != nil && s.SolarPotential.SolarPanels != nil {
		return s.SolarPotential.SolarPanels
	}
	return s.TopLevel.SolarPanels
}

func segmentArea(rs RoofSegmentStats) *float64 {
	if rs.RoofAreaMeters2 != nil {
		return copyOf(rs.RoofAreaMeters2)
	}
	if rs.Stats != nil {
		return copyOf(rs.Stats.AreaMeters2)
	}
	return nil
}

func valueOr(p *float64, def float64) float64 {
	if p != nil {
		return *p
	}
	return def
}

func firstFloat(ps ...*float64) *float64 {
	for _, p := range ps {
		if p != nil {
			return p
		}
	}
	return nil
}

func firstInt(def int, ps ...*int) int {
	for _, p := range ps {
		if p != nil {
			return *p
		}
	}
	return def
}

func copyOf(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
