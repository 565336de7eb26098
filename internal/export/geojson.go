// Package export renders scenes and proposals into exchange formats: GeoJSON,
// shapefiles, EWKB rows, XLSX workbooks, PNG charts, and text reports.
package export

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/roofsolar/internal/flux"
	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/roof"
)

// Feature kinds.
const (
	KindSegment = "segment"
	KindPanel   = "panel"
)

// GeoJSON builds a feature collection with every segment outline (hidden ones
// flagged) followed by the ground rectangle of every placed panel. Segments
// are coloured by average flux and panels by yearly energy.
func GeoJSON(scene roof.Scene) *geojson.FeatureCollection {
	proj := scene.Projector()
	fluxRamp := flux.NewRamp(segmentFlux(scene))
	energyRamp := flux.NewRamp(panelEnergy(scene))

	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(scene.Segments)+len(scene.Panels)),
	}
	for _, s := range scene.Segments {
		props := map[string]any{
			"kind":            KindSegment,
			"segment_id":      s.Segment.ID,
			"tilt_degrees":    s.Segment.TiltDegrees,
			"azimuth_degrees": s.Segment.AzimuthDegrees,
			"hidden":          s.Hidden != roof.HideNone,
			"hide_reason":     string(s.Hidden),
			"panels":          s.Panels,
			"fitted_area_m2":  s.Footprint.Area(),
		}
		if s.Segment.AreaMeters2 != nil {
			props["area_m2"] = *s.Segment.AreaMeters2
		}
		if s.Segment.AvgFlux != nil {
			props["avg_flux"] = *s.Segment.AvgFlux
			props["fill"] = fluxRamp.Colour(*s.Segment.AvgFlux)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         "segment-" + strconv.Itoa(s.Segment.ID),
			Geometry:   s.Outline(proj),
			Properties: props,
		})
	}
	for _, p := range scene.Panels {
		props := map[string]any{
			"kind":        KindPanel,
			"panel_id":    p.Panel.ID,
			"segment_id":  p.Panel.SegmentIndex,
			"orientation": string(p.Panel.Orientation),
			"height_m":    p.Placement.Height,
		}
		if e := p.Panel.YearlyEnergyDcKwh; e != nil {
			props["yearly_energy_dc_kwh"] = *e
			props["fill"] = energyRamp.Colour(*e)
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         "panel-" + strconv.Itoa(p.Panel.ID),
			Geometry:   p.Outline(),
			Properties: props,
		})
	}
	return fc
}

// WriteGeoJSON encodes the scene's feature collection to w.
func WriteGeoJSON(w io.Writer, scene roof.Scene) error {
	return WriteFeatures(w, GeoJSON(scene))
}

// Bounds converts b into a GeoJSON bbox in lng/lat order.
func Bounds(b geo.BBox) *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b.SW.Longitude, b.SW.Latitude, b.NE.Longitude, b.NE.Latitude)
}

// WriteFeatures encodes fc to w.
func WriteFeatures(w io.Writer, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	_, err = w.Write(data)
	return eris.Wrap(err, "export: write geojson")
}

func segmentFlux(scene roof.Scene) []float64 {
	var out []float64
	for _, s := range scene.Segments {
		if s.Segment.AvgFlux != nil {
			out = append(out, *s.Segment.AvgFlux)
		}
	}
	return out
}

func panelEnergy(scene roof.Scene) []float64 {
	var out []float64
	for _, p := range scene.Panels {
		if p.Panel.YearlyEnergyDcKwh != nil {
			out = append(out, *p.Panel.YearlyEnergyDcKwh)
		}
	}
	return out
}
