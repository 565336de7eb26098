package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/proposal"
	"github.com/sells-group/roofsolar/internal/roof"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// testScene has one 10 m south-facing segment with two panels and one steep
// segment that is hidden.
func testScene() roof.Scene {
	origin := geo.GeoPoint{Latitude: 52.2297, Longitude: 21.0122}
	proj := geo.NewProjector(origin)
	square := []geo.GeoPoint{
		proj.ToGeo(-5, -5), proj.ToGeo(5, -5), proj.ToGeo(5, 5), proj.ToGeo(-5, 5),
	}
	view := model.SolarViewData{
		Origin: &origin,
		Segments: []model.Segment{
			{ID: 0, Center: origin, TiltDegrees: 30, AzimuthDegrees: 180, Boundary: square, AreaMeters2: model.Float(100), AvgFlux: model.Float(1100)},
			{ID: 1, Center: proj.ToGeo(20, 0), TiltDegrees: 80, AzimuthDegrees: 90, AvgFlux: model.Float(700)},
		},
		Panels: []model.PanelPlacement{
			{ID: 0, SegmentIndex: 0, Center: proj.ToGeo(-1, 0), Orientation: model.OrientationPortrait, YearlyEnergyDcKwh: model.Float(400)},
			{ID: 1, SegmentIndex: 0, Center: proj.ToGeo(1, 0), Orientation: model.OrientationLandscape},
		},
		PanelDimensions: model.DefaultPanelDimensions(),
	}
	return roof.BuildScene(view, roof.DefaultSceneOptions())
}

func TestGeoJSON(t *testing.T) {
	fc := GeoJSON(testScene())
	require.Len(t, fc.Features, 4)

	seg := fc.Features[0]
	assert.Equal(t, "segment-0", seg.ID)
	assert.Equal(t, KindSegment, seg.Properties["kind"])
	assert.Equal(t, false, seg.Properties["hidden"])
	assert.Equal(t, 2, seg.Properties["panels"])
	assert.Equal(t, "#ddc23c", seg.Properties["fill"])
	_, isPoly := seg.Geometry.(*geom.Polygon)
	assert.True(t, isPoly)

	steep := fc.Features[1]
	assert.Equal(t, true, steep.Properties["hidden"])
	assert.Equal(t, "steep", steep.Properties["hide_reason"])
	assert.Equal(t, "#3c8cdd", steep.Properties["fill"])

	panel := fc.Features[2]
	assert.Equal(t, KindPanel, panel.Properties["kind"])
	assert.Equal(t, 400.0, panel.Properties["yearly_energy_dc_kwh"])
	_, hasFill := fc.Features[3].Properties["fill"]
	assert.False(t, hasFill, "panel without energy has no colour")
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, testScene()))

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string         `json:"type"`
			Geometry map[string]any `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 4)
	assert.Equal(t, "Polygon", doc.Features[0].Geometry["type"])
}

func TestSegmentRows(t *testing.T) {
	rows, err := SegmentRows(testScene())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 0, rows[0].SegmentID)
	assert.False(t, rows[0].Hidden)
	assert.Equal(t, 2, rows[0].PanelCount)
	assert.True(t, rows[1].Hidden)

	g, err := DecodeEWKB(rows[0].Footprint)
	require.NoError(t, err)
	poly, ok := g.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, roof.SRID, poly.SRID())
	assert.InDelta(t, 21.0122, poly.Coords()[0][0].X(), 0.001)
}

func TestSegmentFeatures(t *testing.T) {
	scene := testScene()
	rows, err := SegmentRows(scene)
	require.NoError(t, err)
	view := model.SolarViewData{Segments: []model.Segment{scene.Segments[0].Segment}}

	fc, err := SegmentFeatures(rows, view)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, "segment-0", first.ID)
	assert.Equal(t, 2, first.Properties["panels"])
	assert.Equal(t, 100.0, first.Properties["area_m2"])
	assert.Equal(t, []float64{21.0122, 52.2297}, first.Properties["center"])
	poly, ok := first.Geometry.(*geom.Polygon)
	require.True(t, ok)
	assert.InDelta(t, 21.0122, poly.Coords()[0][0].X(), 0.001)

	second := fc.Features[1]
	assert.Equal(t, true, second.Properties["hidden"])
	_, hasCenter := second.Properties["center"]
	assert.False(t, hasCenter, "segment missing from the view has no centre")

	rows[1].Footprint = []byte{1, 2, 3}
	_, err = SegmentFeatures(rows, view)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment 1")
}

func TestWriteFeatures_Bounds(t *testing.T) {
	fc := GeoJSON(testScene())
	fc.BBox = Bounds(geo.BBox{
		SW: geo.GeoPoint{Latitude: 52.2, Longitude: 21.0},
		NE: geo.GeoPoint{Latitude: 52.3, Longitude: 21.1},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteFeatures(&buf, fc))
	var doc struct {
		BBox []float64 `json:"bbox"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, []float64{21.0, 52.2, 21.1, 52.3}, doc.BBox)
}

func TestEWKB_Nil(t *testing.T) {
	data, err := EncodeEWKB(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	g, err := DecodeEWKB(nil)
	require.NoError(t, err)
	assert.Nil(t, g)

	_, err = DecodeEWKB([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestWriteShapefiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, WriteShapefiles(dir, testScene()))

	r, err := shp.Open(filepath.Join(dir, SegmentsShapefile))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var ids, hidden []string
	for r.Next() {
		_, shape := r.Shape()
		_, ok := shape.(*shp.Polygon)
		assert.True(t, ok)
		ids = append(ids, strings.TrimSpace(strings.TrimRight(r.Attribute(0), "\x00")))
		hidden = append(hidden, strings.TrimSpace(strings.TrimRight(r.Attribute(5), "\x00")))
	}
	assert.Equal(t, []string{"0", "1"}, ids)
	assert.Equal(t, []string{"", "steep"}, hidden)

	pr, err := shp.Open(filepath.Join(dir, PanelsShapefile))
	require.NoError(t, err)
	defer func() { _ = pr.Close() }()
	n := 0
	for pr.Next() {
		n++
	}
	assert.Equal(t, 2, n)
}

func testResult(t *testing.T) *model.ProposalResult {
	t.Helper()
	res, err := proposal.DefaultEngine().Compute(proposal.Request{MonthlyUsageKWh: 300})
	require.NoError(t, err)
	return res
}

func TestWriteScenarioXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScenarioXLSX(&buf, testResult(t)))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	sheet, ok := f.Sheet[SheetScenarios]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 4)
	assert.Equal(t, "Strategy", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "SMART_MATCH", sheet.Rows[1].Cells[0].String())
	panels, err := sheet.Rows[1].Cells[1].Int()
	require.NoError(t, err)
	assert.Equal(t, 8, panels)

	cash, ok := f.Sheet[SheetCashFlow]
	require.True(t, ok)
	assert.Len(t, cash.Rows, proposal.DefaultCashFlowYears+1)
	first, err := cash.Rows[1].Cells[1].Float()
	require.NoError(t, err)
	assert.Equal(t, -15077.0, first)

	_, ok = f.Sheet[SheetAssumptions]
	assert.True(t, ok)
}

func TestCashFlowChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CashFlowChart(&buf, testResult(t).Scenarios, 0))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	assert.Error(t, CashFlowChart(&buf, nil, 0))
}

func TestReport(t *testing.T) {
	res := testResult(t)

	var en bytes.Buffer
	require.NoError(t, Report(&en, res, "en"))
	out := en.String()
	assert.Contains(t, out, "Solar proposal")
	assert.Contains(t, out, "Annual usage: 3,600 kWh")
	assert.Contains(t, out, "SMART_MATCH: 8 panels")
	assert.Contains(t, out, "payback 9.8 years")
	assert.Contains(t, out, "break-even in year 10")
	assert.Contains(t, out, "Warnings:")

	var pl bytes.Buffer
	require.NoError(t, Report(&pl, res, "pl"))
	assert.Contains(t, pl.String(), "Oferta fotowoltaiczna")
	assert.Contains(t, pl.String(), "Ostrzeżenia:")

	var fallback bytes.Buffer
	require.NoError(t, Report(&fallback, res, "not a locale!"))
	assert.Contains(t, fallback.String(), "Solar proposal")
}
