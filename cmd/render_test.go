package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/raster"
)

const testSurvey = `{
  "center": {"latitude": 52.2297, "longitude": 21.0122},
  "solarPotential": {
    "roofSegmentStats": [
      {"segmentIndex": 0, "pitchDegrees": 30, "azimuthDegrees": 180,
       "center": {"latitude": 52.2297, "longitude": 21.0122},
       "boundingBox": {"sw": {"latitude": 52.22965, "longitude": 21.01212}, "ne": {"latitude": 52.22975, "longitude": 21.01228}},
       "stats": {"areaMeters2": 80}}
    ],
    "solarPanels": [
      {"segmentIndex": 0, "center": {"latitude": 52.2297, "longitude": 21.0122}},
      {"segmentIndex": 0, "center": {"latitude": 52.22972, "longitude": 21.01222}, "yearlyEnergyDcKwh": 410}
    ]
  }
}`

func writeSurvey(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "survey.json")
	require.NoError(t, os.WriteFile(path, []byte(testSurvey), 0o644))
	return path
}

// writeFluxGrid writes a uniform 2x2 flux grid covering the test survey.
func writeFluxGrid(t *testing.T, dir string, value float64) string {
	t.Helper()
	path := filepath.Join(dir, "flux.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	require.NoError(t, raster.EncodeGrid(f, &raster.Raster{
		Width:  2,
		Height: 2,
		BBox: geo.BBox{
			SW: geo.GeoPoint{Latitude: 52.2, Longitude: 21.0},
			NE: geo.GeoPoint{Latitude: 52.3, Longitude: 21.1},
		},
		Values: []float64{value, value, value, value},
	}))
	return path
}

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func TestRender_Stdout(t *testing.T) {
	dir := chdirTemp(t)

	out, err := execute(t, "render", writeSurvey(t, dir))
	require.NoError(t, err)

	var fc featureCollection
	require.NoError(t, json.Unmarshal([]byte(out), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 3)
}

func TestRender_PanelLimitAndFile(t *testing.T) {
	dir := chdirTemp(t)
	outPath := filepath.Join(dir, "scene.geojson")

	_, err := execute(t, "render", writeSurvey(t, dir), "--panels", "1", "--out", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var fc featureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Len(t, fc.Features, 2)
}

func TestRender_OverlayRadius(t *testing.T) {
	dir := chdirTemp(t)

	out, err := execute(t, "render", writeSurvey(t, dir), "--overlay-radius", "50")
	require.NoError(t, err)

	var doc struct {
		BBox []float64 `json:"bbox"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.BBox, 4)
	want := geo.BoundsAround(geo.GeoPoint{Latitude: 52.2297, Longitude: 21.0122}, 50)
	assert.InDelta(t, want.SW.Longitude, doc.BBox[0], 1e-9)
	assert.InDelta(t, want.SW.Latitude, doc.BBox[1], 1e-9)
	assert.InDelta(t, want.NE.Longitude, doc.BBox[2], 1e-9)
	assert.InDelta(t, want.NE.Latitude, doc.BBox[3], 1e-9)
	assert.Less(t, doc.BBox[1], 52.2297)
	assert.Greater(t, doc.BBox[3], 52.2297)
}

func TestRender_Save(t *testing.T) {
	dir := chdirTemp(t)

	_, err := execute(t, "render", writeSurvey(t, dir), "--save", "roof-a", "--out", filepath.Join(dir, "a.geojson"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "roofsolar.db"))
	assert.NoError(t, err)
}

func TestExport_StoredView(t *testing.T) {
	dir := chdirTemp(t)
	_, err := execute(t, "migrate")
	require.NoError(t, err)

	view, err := loadView(t.Context(), writeSurvey(t, dir), "")
	require.NoError(t, err)
	st, err := initStore(t.Context())
	require.NoError(t, err)
	rec, err := st.CreateView(t.Context(), "roof-b", view, nil)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	outPath := filepath.Join(dir, "stored.geojson")
	_, err = execute(t, "export", "--view", rec.ID, "--geojson", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var fc featureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Len(t, fc.Features, 3)

	_, err = execute(t, "export", "--view", "missing", "--geojson", outPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadView_FluxEnrichment(t *testing.T) {
	dir := chdirTemp(t)
	_, err := execute(t, "migrate")
	require.NoError(t, err)

	view, err := loadView(t.Context(), writeSurvey(t, dir), writeFluxGrid(t, dir, 1000))
	require.NoError(t, err)
	require.Len(t, view.Panels, 2)

	require.NotNil(t, view.Panels[0].YearlyEnergyDcKwh, "unset energy is backfilled")
	assert.Positive(t, *view.Panels[0].YearlyEnergyDcKwh)
	require.NotNil(t, view.Panels[1].YearlyEnergyDcKwh)
	assert.Equal(t, 410.0, *view.Panels[1].YearlyEnergyDcKwh)
	require.NotNil(t, view.Segments[0].AvgFlux)
	assert.InDelta(t, 1000, *view.Segments[0].AvgFlux, 1e-9)
}

func TestLoadView_MissingFluxLayer(t *testing.T) {
	dir := chdirTemp(t)
	_, err := execute(t, "migrate")
	require.NoError(t, err)

	view, err := loadView(t.Context(), writeSurvey(t, dir), filepath.Join(dir, "missing.tif"))
	require.NoError(t, err)
	require.Len(t, view.Panels, 2)
	assert.Nil(t, view.Panels[0].YearlyEnergyDcKwh, "energy stays unset without flux")
	require.NotNil(t, view.Panels[1].YearlyEnergyDcKwh)
	assert.Equal(t, 410.0, *view.Panels[1].YearlyEnergyDcKwh)
	assert.Nil(t, view.Segments[0].AvgFlux)
}

func TestRender_CorruptFluxDegrades(t *testing.T) {
	dir := chdirTemp(t)
	bad := filepath.Join(dir, "flux.tif")
	require.NoError(t, os.WriteFile(bad, []byte("not a raster"), 0o644))

	out, err := execute(t, "render", writeSurvey(t, dir), "--flux", bad)
	require.NoError(t, err)

	var fc featureCollection
	require.NoError(t, json.Unmarshal([]byte(out), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 3)
}

func TestExport_Shapefiles(t *testing.T) {
	dir := chdirTemp(t)
	shpDir := filepath.Join(dir, "shp")

	_, err := execute(t, "export", writeSurvey(t, dir), "--shp", shpDir, "--geojson", filepath.Join(dir, "out.geojson"))
	require.NoError(t, err)

	entries, err := os.ReadDir(shpDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
	_, err = os.Stat(filepath.Join(dir, "out.geojson"))
	assert.NoError(t, err)
}

func TestExport_NeedsInputAndOutput(t *testing.T) {
	dir := chdirTemp(t)

	_, err := execute(t, "export", "--shp", filepath.Join(dir, "shp"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass a survey file or --view")

	_, err = execute(t, "export", writeSurvey(t, dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to write")
}
