package export

import (
	"os"
	"path/filepath"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/roofsolar/internal/roof"
)

// Shapefile base names written by WriteShapefiles.
const (
	SegmentsShapefile = "segments.shp"
	PanelsShapefile   = "panels.shp"
)

var segmentFields = []shp.Field{
	shp.NumberField("SEG_ID", 10),
	shp.FloatField("TILT", 8, 2),
	shp.FloatField("AZIMUTH", 8, 2),
	shp.FloatField("AREA_M2", 12, 2),
	shp.FloatField("AVG_FLUX", 12, 2),
	shp.StringField("HIDDEN", 8),
	shp.NumberField("PANELS", 6),
}

var panelFields = []shp.Field{
	shp.NumberField("PANEL_ID", 10),
	shp.NumberField("SEG_ID", 10),
	shp.StringField("ORIENT", 10),
	shp.FloatField("ENERGY", 12, 2),
}

// WriteShapefiles writes segment outlines and panel ground rectangles as two
// polygon shapefiles in dir.
func WriteShapefiles(dir string, scene roof.Scene) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create %s", dir)
	}
	proj := scene.Projector()

	segs, err := newShapeWriter(filepath.Join(dir, SegmentsShapefile), segmentFields)
	if err != nil {
		return err
	}
	for _, s := range scene.Segments {
		var area, avg float64
		if s.Segment.AreaMeters2 != nil {
			area = *s.Segment.AreaMeters2
		}
		if s.Segment.AvgFlux != nil {
			avg = *s.Segment.AvgFlux
		}
		if err := segs.add(s.Outline(proj),
			s.Segment.ID, s.Segment.TiltDegrees, s.Segment.AzimuthDegrees,
			area, avg, string(s.Hidden), s.Panels,
		); err != nil {
			segs.Close()
			return eris.Wrapf(err, "export: segment %d", s.Segment.ID)
		}
	}
	segs.Close()

	panels, err := newShapeWriter(filepath.Join(dir, PanelsShapefile), panelFields)
	if err != nil {
		return err
	}
	defer panels.Close()
	for _, p := range scene.Panels {
		var energy float64
		if p.Panel.YearlyEnergyDcKwh != nil {
			energy = *p.Panel.YearlyEnergyDcKwh
		}
		if err := panels.add(p.Outline(),
			p.Panel.ID, p.Panel.SegmentIndex, string(p.Panel.Orientation), energy,
		); err != nil {
			return eris.Wrapf(err, "export: panel %d", p.Panel.ID)
		}
	}
	return nil
}

type shapeWriter struct {
	*shp.Writer
}

func newShapeWriter(path string, fields []shp.Field) (*shapeWriter, error) {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return nil, eris.Wrapf(err, "export: create shapefile %s", path)
	}
	if err := w.SetFields(fields); err != nil {
		w.Close()
		return nil, eris.Wrapf(err, "export: set fields %s", path)
	}
	return &shapeWriter{Writer: w}, nil
}

// add writes one polygon and its attributes in field order.
func (w *shapeWriter) add(poly *geom.Polygon, attrs ...any) error {
	parts := make([][]shp.Point, 0, poly.NumLinearRings())
	for i := 0; i < poly.NumLinearRings(); i++ {
		ring := poly.LinearRing(i).Coords()
		pts := make([]shp.Point, len(ring))
		for j, c := range ring {
			pts[j] = shp.Point{X: c.X(), Y: c.Y()}
		}
		parts = append(parts, pts)
	}
	shape := shp.Polygon(*shp.NewPolyLine(parts))
	row := int(w.Write(&shape))
	for i, v := range attrs {
		if err := w.WriteAttribute(row, i, v); err != nil {
			return eris.Wrapf(err, "write attribute %d", i)
		}
	}
	return nil
}
