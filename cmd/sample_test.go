package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/raster"
)

func TestParseLayers(t *testing.T) {
	got, err := parseLayers([]string{"flux=a.tif", " dsm = https://example.com/dsm.tif ", "b.json"})
	require.Error(t, err, "bare source collides with the explicit flux layer")
	assert.Nil(t, got)

	got, err = parseLayers([]string{"mask=m.tif", "f.tif"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mask": "m.tif", raster.LayerFlux: "f.tif"}, got)

	for _, bad := range [][]string{nil, {"=x"}, {"flux="}} {
		_, err := parseLayers(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestParsePoints(t *testing.T) {
	got, err := parsePoints([]string{"52.2297,21.0122", " -33.9 , 18.4 "})
	require.NoError(t, err)
	assert.Equal(t, []geo.GeoPoint{
		{Latitude: 52.2297, Longitude: 21.0122},
		{Latitude: -33.9, Longitude: 18.4},
	}, got)

	tests := []struct {
		name string
		in   string
	}{
		{"no comma", "52.2"},
		{"bad lat", "x,21"},
		{"bad lng", "52,y"},
		{"out of range", "91,0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePoints([]string{tt.in})
			assert.Error(t, err)
		})
	}
}

func TestSample_LayersAndPartialFailure(t *testing.T) {
	dir := chdirTemp(t)
	grid := writeFluxGrid(t, dir, 950)

	out, err := execute(t, "sample",
		"--layer", "flux="+grid,
		"--layer", "dsm="+filepath.Join(dir, "missing.tif"),
		"--point", "52.25,21.05",
		"--point", "10,10",
	)
	require.NoError(t, err)

	var got map[string]layerOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Contains(t, got, "flux")
	require.Contains(t, got, "dsm")

	assert.Empty(t, got["flux"].Error)
	assert.Equal(t, 2, got["flux"].Valid)
	require.Len(t, got["flux"].Samples, 2)
	assert.Equal(t, 950.0, got["flux"].Samples[0].Value)
	assert.Equal(t, 950.0, got["flux"].Samples[1].Value, "points outside the grid clamp to the edge")

	require.NotNil(t, got["flux"].Stats)
	assert.Equal(t, raster.Stats{Count: 4, Min: 950, Max: 950, Mean: 950}, *got["flux"].Stats)

	assert.NotEmpty(t, got["dsm"].Error)
	assert.Empty(t, got["dsm"].Samples)
	assert.Nil(t, got["dsm"].Stats)
}

func TestSample_SurveyPoints(t *testing.T) {
	dir := chdirTemp(t)

	out, err := execute(t, "sample", "--layer", writeFluxGrid(t, dir, 700), "--survey", writeSurvey(t, dir))
	require.NoError(t, err)

	var got map[string]layerOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got[raster.LayerFlux].Valid)
}

func TestSample_RequiresPoints(t *testing.T) {
	dir := chdirTemp(t)

	_, err := execute(t, "sample", "--layer", writeFluxGrid(t, dir, 700))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no points")
}

func TestGrid_Convert(t *testing.T) {
	dir := chdirTemp(t)
	src := writeFluxGrid(t, dir, 875)

	out, err := execute(t, "grid", src)
	require.NoError(t, err)
	r, err := raster.DecodeGrid(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Width)
	assert.Equal(t, raster.Stats{Count: 4, Min: 875, Max: 875, Mean: 875}, r.Stats())

	outPath := filepath.Join(dir, "copy.json")
	_, err = execute(t, "grid", src, "--out", outPath)
	require.NoError(t, err)
	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	_, err = raster.DecodeGrid(f)
	require.NoError(t, err)

	_, err = execute(t, "grid", filepath.Join(dir, "missing.tif"))
	require.Error(t, err)
	var le *raster.LoadError
	assert.ErrorAs(t, err, &le)
}
