package roof

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/model"
)

// PanelOrder chooses how panels are ranked before a count limit applies.
type PanelOrder string

const (
	// OrderYield ranks by yearly energy, highest first. Missing energy counts as zero.
	OrderYield PanelOrder = "yield"
	// OrderAsIs keeps survey order.
	OrderAsIs PanelOrder = "as-is"
)

// SceneOptions tunes BuildScene.
type SceneOptions struct {
	VerticalExaggeration float64
	PanelOrder           PanelOrder
	// PanelLimit caps the number of panels selected. Nil selects all.
	PanelLimit *int
	Visibility Visibility
}

// DefaultSceneOptions selects every panel by yield with true-scale heights.
func DefaultSceneOptions() SceneOptions {
	return SceneOptions{
		VerticalExaggeration: 1,
		PanelOrder:           OrderYield,
		Visibility:           DefaultVisibility(),
	}
}

// SegmentScene is one resolved segment.
type SegmentScene struct {
	Segment   model.Segment
	Basis     geo.PlaneBasis
	Center    geo.Vec3 // local metres; Y is the normalized elevation
	Footprint Footprint
	Hidden    HideReason
	Panels    int
}

// PanelScene is one placed panel.
type PanelScene struct {
	Panel     model.PanelPlacement
	Placement Placement
	Solid     Solid
	Ground    [4]geo.GeoPoint
}

// Scene is a full render pass over one view. Every coordinate is relative to
// Origin.
type Scene struct {
	Origin     geo.GeoPoint
	Dimensions model.PanelDimensions
	Segments   []SegmentScene
	Panels     []PanelScene
	// Orphaned counts selected panels whose segment id matched nothing.
	Orphaned int
	// Suppressed counts selected panels that sit on hidden segments.
	Suppressed int
}

// Projector returns the projector anchored at the scene origin.
func (s Scene) Projector() geo.Projector {
	return geo.NewProjector(s.Origin)
}

// VisibleSegments returns the segments that are not hidden.
func (s Scene) VisibleSegments() []SegmentScene {
	out := make([]SegmentScene, 0, len(s.Segments))
	for _, seg := range s.Segments {
		if seg.Hidden == HideNone {
			out = append(out, seg)
		}
	}
	return out
}

// SelectPanels orders panels and keeps the first limit of them. A nil limit
// keeps all; the limit is clamped to [0, len(panels)].
func SelectPanels(panels []model.PanelPlacement, order PanelOrder, limit *int) []model.PanelPlacement {
	out := append([]model.PanelPlacement(nil), panels...)
	if order == OrderYield {
		sort.SliceStable(out, func(i, j int) bool {
			return energyOf(out[i]) > energyOf(out[j])
		})
	}
	if limit == nil {
		return out
	}
	n := *limit
	if n < 0 {
		n = 0
	}
	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

func energyOf(p model.PanelPlacement) float64 {
	if p.YearlyEnergyDcKwh == nil {
		return 0
	}
	return *p.YearlyEnergyDcKwh
}

// BuildScene resolves the origin once and places every segment and selected
// panel relative to it.
func BuildScene(view model.SolarViewData, opts SceneOptions) Scene {
	if opts.VerticalExaggeration == 0 {
		opts.VerticalExaggeration = 1
	}
	if opts.PanelOrder == "" {
		opts.PanelOrder = OrderYield
	}
	if opts.Visibility == (Visibility{}) {
		opts.Visibility = DefaultVisibility()
	}

	origin := view.ResolveOrigin()
	proj := geo.NewProjector(origin)
	dims := view.PanelDimensions

	minHeight := math.Inf(1)
	for _, s := range view.Segments {
		minHeight = math.Min(minHeight, s.PlaneHeightAtCenterMeters)
	}
	if math.IsInf(minHeight, 1) {
		minHeight = 0
	}

	centersBySeg := make(map[int][]geo.GeoPoint)
	for _, p := range view.Panels {
		centersBySeg[p.SegmentIndex] = append(centersBySeg[p.SegmentIndex], p.Center)
	}

	scene := Scene{
		Origin:     origin,
		Dimensions: dims,
		Segments:   make([]SegmentScene, 0, len(view.Segments)),
	}
	index := make(map[int]int, len(view.Segments))
	for _, seg := range view.Segments {
		basis := geo.NewPlaneBasis(seg.TiltDegrees, seg.AzimuthDegrees)
		center := proj.ToLocalVec(seg.Center)
		center.Y = (seg.PlaneHeightAtCenterMeters - minHeight) * opts.VerticalExaggeration

		fp := ResolveFootprint(seg, basis, proj, centersBySeg[seg.ID], dims)
		index[seg.ID] = len(scene.Segments)
		scene.Segments = append(scene.Segments, SegmentScene{
			Segment:   seg,
			Basis:     basis,
			Center:    center,
			Footprint: fp,
			Hidden:    opts.Visibility.Classify(seg, fp),
		})
	}

	thickness := dims.Thickness()
	for _, p := range SelectPanels(view.Panels, opts.PanelOrder, opts.PanelLimit) {
		i, ok := index[p.SegmentIndex]
		if !ok {
			scene.Orphaned++
			continue
		}
		ss := &scene.Segments[i]
		if ss.Hidden != HideNone {
			scene.Suppressed++
			continue
		}
		pl := PlacePanel(p, dims, ss.Basis, proj, ss.Center, ss.Center.Y)
		scene.Panels = append(scene.Panels, PanelScene{
			Panel:     p,
			Placement: pl,
			Solid:     pl.Solid(ss.Basis, ss.Center, thickness),
			Ground:    GroundCorners(p, dims, ss.Basis, ss.Segment.Center.Latitude),
		})
		ss.Panels++
	}

	if scene.Orphaned > 0 {
		zap.L().Debug("roof: panels reference unknown segments", zap.Int("count", scene.Orphaned))
	}
	return scene
}
