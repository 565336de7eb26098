package export

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/roof"
)

// EncodeEWKB encodes g as little-endian EWKB. Nil geometries encode to nil.
func EncodeEWKB(g geom.T) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "export: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB parses EWKB produced by EncodeEWKB or by PostGIS.
func DecodeEWKB(data []byte) (geom.T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "export: decode EWKB")
	}
	return g, nil
}

// SegmentRows flattens the scene's segments into storage rows with their
// geographic footprint as EWKB. ViewID is left for the store to fill.
func SegmentRows(scene roof.Scene) ([]model.SegmentRow, error) {
	proj := scene.Projector()
	rows := make([]model.SegmentRow, 0, len(scene.Segments))
	for _, s := range scene.Segments {
		fp, err := EncodeEWKB(s.Outline(proj))
		if err != nil {
			return nil, eris.Wrapf(err, "export: segment %d", s.Segment.ID)
		}
		rows = append(rows, model.SegmentRow{
			SegmentID:      s.Segment.ID,
			TiltDegrees:    s.Segment.TiltDegrees,
			AzimuthDegrees: s.Segment.AzimuthDegrees,
			AreaMeters2:    s.Segment.AreaMeters2,
			AvgFlux:        s.Segment.AvgFlux,
			Hidden:         s.Hidden != roof.HideNone,
			PanelCount:     s.Panels,
			Footprint:      fp,
		})
	}
	return rows, nil
}

// SegmentFeatures rebuilds stored segment rows as GeoJSON from their EWKB
// footprints. Segments that view still knows gain their centre and plane
// height.
func SegmentFeatures(rows []model.SegmentRow, view model.SolarViewData) (*geojson.FeatureCollection, error) {
	byID := view.SegmentByID()
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(rows))}
	for _, r := range rows {
		g, err := DecodeEWKB(r.Footprint)
		if err != nil {
			return nil, eris.Wrapf(err, "export: segment %d", r.SegmentID)
		}
		props := map[string]any{
			"kind":            KindSegment,
			"segment_id":      r.SegmentID,
			"tilt_degrees":    r.TiltDegrees,
			"azimuth_degrees": r.AzimuthDegrees,
			"hidden":          r.Hidden,
			"panels":          r.PanelCount,
		}
		if r.AreaMeters2 != nil {
			props["area_m2"] = *r.AreaMeters2
		}
		if r.AvgFlux != nil {
			props["avg_flux"] = *r.AvgFlux
		}
		if seg, ok := byID[r.SegmentID]; ok {
			props["center"] = []float64{seg.Center.Longitude, seg.Center.Latitude}
			props["plane_height_m"] = seg.PlaneHeightAtCenterMeters
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         "segment-" + strconv.Itoa(r.SegmentID),
			Geometry:   g,
			Properties: props,
		})
	}
	return fc, nil
}
