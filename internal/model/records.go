package model

import "time"

// ProposalRecord is a persisted proposal computation.
type ProposalRecord struct {
	ID        string         `json:"id"`
	Label     string         `json:"label,omitempty"`
	Result    ProposalResult `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}

// ViewRecord is a persisted roof view.
type ViewRecord struct {
	ID        string        `json:"id"`
	Label     string        `json:"label,omitempty"`
	View      SolarViewData `json:"view"`
	CreatedAt time.Time     `json:"created_at"`
}

// SegmentRow is the flattened per-segment row stored next to a view.
// Footprint is EWKB in SRID 4326 and may be nil when the segment had no
// usable outline.
type SegmentRow struct {
	ViewID         string   `json:"view_id"`
	SegmentID      int      `json:"segment_id"`
	TiltDegrees    float64  `json:"tilt_degrees"`
	AzimuthDegrees float64  `json:"azimuth_degrees"`
	AreaMeters2    *float64 `json:"area_meters2,omitempty"`
	AvgFlux        *float64 `json:"avg_flux,omitempty"`
	Hidden         bool     `json:"hidden"`
	PanelCount     int      `json:"panel_count"`
	Footprint      []byte   `json:"-"`
}
