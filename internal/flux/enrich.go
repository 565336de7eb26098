package flux

import (
	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/raster"
)

// EnrichStats reports what Enrich changed.
type EnrichStats struct {
	Backfilled      int `json:"backfilled"`
	Preserved       int `json:"preserved"`
	Unsampled       int `json:"unsampled"`
	SegmentsWithAvg int `json:"segments_with_avg"`
}

// Enrich returns a copy of view with flux-derived estimates filled in.
// Panels that already carry a yearly energy value keep it. Segments get an
// average flux only when they have none and at least one panel sample was
// valid. The input view is not modified.
func Enrich(view model.SolarViewData, samples []raster.Sample, opts Options) (model.SolarViewData, EnrichStats) {
	out := view.Clone()
	var stats EnrichStats

	for i := range out.Panels {
		p := &out.Panels[i]
		if p.YearlyEnergyDcKwh != nil {
			stats.Preserved++
			continue
		}
		if i >= len(samples) || !samples[i].OK {
			stats.Unsampled++
			continue
		}
		p.YearlyEnergyDcKwh = model.Float(EstimateEnergy(samples[i].Value, out.PanelDimensions, opts))
		stats.Backfilled++
	}

	avgs := SegmentAverages(out.Panels, samples)
	for i := range out.Segments {
		s := &out.Segments[i]
		if s.AvgFlux != nil {
			continue
		}
		if avg, ok := avgs[s.ID]; ok {
			s.AvgFlux = model.Float(avg)
			stats.SegmentsWithAvg++
		}
	}
	return out, stats
}
