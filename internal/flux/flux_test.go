package flux

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/raster"
)

func TestEstimateEnergy(t *testing.T) {
	t.Parallel()
	dims := model.PanelDimensions{WidthMeters: 1, HeightMeters: 2}

	tests := []struct {
		name string
		flux float64
		want float64
	}{
		{"typical", 1000, 1000 * 2 * 0.19 * 0.85},
		{"zero", 0, 0},
		{"negative clamps", -50, 0},
		{"nan clamps", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EstimateEnergy(tt.flux, dims, DefaultOptions()), 1e-9)
		})
	}
}

func TestEstimateEnergy_CustomOptions(t *testing.T) {
	t.Parallel()
	got := EstimateEnergy(1200, model.DefaultPanelDimensions(), Options{Efficiency: 0.2, PerformanceRatio: 1})
	assert.InDelta(t, 1200*1.1*1.8*0.2, got, 1e-9)
}

func panelsOn(segs ...int) []model.PanelPlacement {
	out := make([]model.PanelPlacement, len(segs))
	for i, s := range segs {
		out[i] = model.PanelPlacement{ID: i, SegmentIndex: s, Center: geo.GeoPoint{Latitude: 52, Longitude: 21 + float64(i)*1e-5}}
	}
	return out
}

func TestSegmentAverages(t *testing.T) {
	t.Parallel()
	panels := panelsOn(0, 0, 1, 2, 2)
	samples := []raster.Sample{
		{Value: 1000, OK: true},
		{Value: 1200, OK: true},
		{},
		{Value: 800, OK: true},
	}
	got := SegmentAverages(panels, samples)

	assert.Len(t, got, 2)
	assert.InDelta(t, 1100, got[0], 1e-9)
	assert.InDelta(t, 800, got[2], 1e-9)
	_, has := got[1]
	assert.False(t, has, "segment with only missing samples has no average")
}

func TestPanelCenters(t *testing.T) {
	t.Parallel()
	view := model.SolarViewData{Panels: panelsOn(3, 4)}
	pts := PanelCenters(view)
	require.Len(t, pts, 2)
	assert.Equal(t, view.Panels[1].Center, pts[1])
}

func TestEnrich(t *testing.T) {
	t.Parallel()
	upstream := 321.0
	view := model.SolarViewData{
		Segments: []model.Segment{
			{ID: 0},
			{ID: 1, AvgFlux: model.Float(999)},
			{ID: 2},
		},
		Panels:          panelsOn(0, 0, 1, 2),
		PanelDimensions: model.PanelDimensions{WidthMeters: 1, HeightMeters: 1},
	}
	view.Panels[0].YearlyEnergyDcKwh = &upstream

	samples := []raster.Sample{
		{Value: 1000, OK: true},
		{Value: 2000, OK: true},
		{Value: 500, OK: true},
	}
	out, stats := Enrich(view, samples, Options{Efficiency: 0.5, PerformanceRatio: 1})

	assert.Equal(t, EnrichStats{Backfilled: 2, Preserved: 1, Unsampled: 1, SegmentsWithAvg: 1}, stats)
	assert.Equal(t, 321.0, *out.Panels[0].YearlyEnergyDcKwh, "upstream energy is kept")
	assert.InDelta(t, 1000, *out.Panels[1].YearlyEnergyDcKwh, 1e-9)
	assert.InDelta(t, 250, *out.Panels[2].YearlyEnergyDcKwh, 1e-9)
	assert.Nil(t, out.Panels[3].YearlyEnergyDcKwh)

	assert.InDelta(t, 1500, *out.Segments[0].AvgFlux, 1e-9)
	assert.Equal(t, 999.0, *out.Segments[1].AvgFlux, "existing average is kept")
	assert.Nil(t, out.Segments[2].AvgFlux)

	assert.Nil(t, view.Panels[1].YearlyEnergyDcKwh, "input is untouched")
	assert.Nil(t, view.Segments[0].AvgFlux)
}

func TestEnrich_NoSamples(t *testing.T) {
	t.Parallel()
	view := model.SolarViewData{Panels: panelsOn(0), Segments: []model.Segment{{ID: 0}}}
	out, stats := Enrich(view, nil, DefaultOptions())
	assert.Equal(t, 1, stats.Unsampled)
	assert.Nil(t, out.Panels[0].YearlyEnergyDcKwh)
	assert.Nil(t, out.Segments[0].AvgFlux)
}

func TestRamp(t *testing.T) {
	t.Parallel()
	r := NewRamp([]float64{800, math.NaN(), 1200, 1000})
	assert.False(t, r.Empty())
	assert.Equal(t, 800.0, r.Min)
	assert.Equal(t, 1200.0, r.Max)

	assert.Equal(t, 0.0, r.Position(800))
	assert.Equal(t, 0.5, r.Position(1000))
	assert.Equal(t, 1.0, r.Position(5000))
	assert.Equal(t, 210.0, r.Hue(800))
	assert.Equal(t, 50.0, r.Hue(1200))

	assert.Equal(t, "#3c8cdd", r.Colour(800))
	assert.Equal(t, "#ddc23c", r.Colour(1200))
}

func TestRamp_FlatAndEmpty(t *testing.T) {
	t.Parallel()
	flat := NewRamp([]float64{900, 900})
	assert.Equal(t, 0.5, flat.Position(900))
	assert.Equal(t, 130.0, flat.Hue(900))

	empty := NewRamp(nil)
	assert.True(t, empty.Empty())
}
