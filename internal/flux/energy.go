// Package flux turns sampled annual irradiance into per-panel energy
// estimates and per-segment averages.
package flux

import (
	"math"

	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/model"
	"github.com/sells-group/roofsolar/internal/raster"
)

// Options holds the conversion factors from irradiance to DC energy.
type Options struct {
	Efficiency       float64 `json:"efficiency" yaml:"efficiency" mapstructure:"efficiency"`
	PerformanceRatio float64 `json:"performance_ratio" yaml:"performance_ratio" mapstructure:"performance_ratio"`
}

// DefaultOptions returns a 19% module efficiency and 0.85 performance ratio.
func DefaultOptions() Options {
	return Options{Efficiency: 0.19, PerformanceRatio: 0.85}
}

// EstimateEnergy converts annual flux (kWh/m²/year) falling on one panel into
// yearly DC energy. Negative or non-finite results clamp to zero.
func EstimateEnergy(flux float64, dims model.PanelDimensions, opts Options) float64 {
	e := flux * dims.Area() * opts.Efficiency * opts.PerformanceRatio
	if math.IsNaN(e) || e < 0 {
		return 0
	}
	return e
}

// PanelCenters returns the sampling points for the view's panels, in order.
func PanelCenters(view model.SolarViewData) []geo.GeoPoint {
	out := make([]geo.GeoPoint, len(view.Panels))
	for i, p := range view.Panels {
		out[i] = p.Center
	}
	return out
}

// SegmentAverages groups samples by the owning panel's segment and averages
// them. samples[i] belongs to panels[i]. Missing samples are ignored and a
// segment without any valid sample is absent from the result.
func SegmentAverages(panels []model.PanelPlacement, samples []raster.Sample) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for i, p := range panels {
		if i >= len(samples) || !samples[i].OK {
			continue
		}
		sums[p.SegmentIndex] += samples[i].Value
		counts[p.SegmentIndex]++
	}
	out := make(map[int]float64, len(counts))
	for id, n := range counts {
		out[id] = sums[id] / float64(n)
	}
	return out
}
