// Package roof reconstructs roof facets and panel layouts in each facet's
// local plane frame.
package roof

import (
	"math"

	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/model"
)

// Footprint fitting constants.
const (
	minFittedSideM    = 0.5
	minMarginM        = 0.2
	marginPanelFactor = 0.3
	minAreaScale      = 0.5
	maxAreaScale      = 2.0
	seamExpandM       = 0.04
	fallbackAreaM2    = 16.0
)

// UV is a position in a segment's plane frame: U across the slope, V down it.
type UV struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

// Footprint is a segment outline in its own plane frame, centred on the
// segment centre.
type Footprint struct {
	CenterUV UV
	WidthU   float64
	HeightV  float64
	// PolygonUV is the slightly expanded boundary. Nil for the fallback square.
	PolygonUV  []UV
	CentroidUV UV
}

// Fallback reports whether the footprint is the square used when the segment
// has no boundary.
func (f Footprint) Fallback() bool {
	return f.PolygonUV == nil
}

// Area is the fitted rectangle area.
func (f Footprint) Area() float64 {
	return f.WidthU * f.HeightV
}

// ToUV projects a geographic point into the segment's plane frame.
func ToUV(p geo.GeoPoint, center geo.Vec3, basis geo.PlaneBasis, proj geo.Projector) UV {
	u, v, _ := basis.Project(proj.ToLocalVec(p).Sub(center))
	return UV{U: u, V: v}
}

// ResolveFootprint fits the segment's outline in (u, v). panelCenters are the
// centres of panels that belong to the segment and tighten the fit; dims
// drives the safety margin. The segment's area, when present, rescales the
// fitted rectangle.
func ResolveFootprint(seg model.Segment, basis geo.PlaneBasis, proj geo.Projector, panelCenters []geo.GeoPoint, dims model.PanelDimensions) Footprint {
	if !seg.HasBoundary() {
		area := fallbackAreaM2
		if seg.AreaMeters2 != nil {
			area = *seg.AreaMeters2
		}
		side := math.Sqrt(math.Max(area, 1))
		return Footprint{WidthU: side, HeightV: side}
	}

	center := proj.ToLocalVec(seg.Center)
	boundary := make([]UV, len(seg.Boundary))
	for i, p := range seg.Boundary {
		boundary[i] = ToUV(p, center, basis, proj)
	}
	all := append([]UV(nil), boundary...)
	for _, p := range panelCenters {
		all = append(all, ToUV(p, center, basis, proj))
	}

	uMin, uMax := math.Inf(1), math.Inf(-1)
	vMin, vMax := math.Inf(1), math.Inf(-1)
	var sumU, sumV float64
	for _, p := range all {
		uMin, uMax = math.Min(uMin, p.U), math.Max(uMax, p.U)
		vMin, vMax = math.Min(vMin, p.V), math.Max(vMax, p.V)
		sumU += p.U
		sumV += p.V
	}

	width := math.Max(minFittedSideM, uMax-uMin)
	height := math.Max(minFittedSideM, vMax-vMin)

	if dims.WidthMeters > 0 || dims.HeightMeters > 0 {
		width += 2 * math.Max(minMarginM, dims.WidthMeters*marginPanelFactor)
		height += 2 * math.Max(minMarginM, dims.HeightMeters*marginPanelFactor)
	}

	if seg.AreaMeters2 != nil && *seg.AreaMeters2 > 0 {
		scale := math.Sqrt(*seg.AreaMeters2 / (width * height))
		scale = math.Min(math.Max(scale, minAreaScale), maxAreaScale)
		width *= scale
		height *= scale
	}

	n := float64(len(all))
	centroid := UV{U: sumU / n, V: sumV / n}
	growU := 1 + seamExpandM/math.Max(width, 1e-3)
	growV := 1 + seamExpandM/math.Max(height, 1e-3)
	polygon := make([]UV, len(boundary))
	for i, p := range boundary {
		polygon[i] = UV{
			U: centroid.U + (p.U-centroid.U)*growU,
			V: centroid.V + (p.V-centroid.V)*growV,
		}
	}

	return Footprint{
		CenterUV:   UV{U: (uMin + uMax) / 2, V: (vMin + vMax) / 2},
		WidthU:     width,
		HeightV:    height,
		PolygonUV:  polygon,
		CentroidUV: centroid,
	}
}
