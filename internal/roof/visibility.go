package roof

import (
	"math"

	"github.com/sells-group/roofsolar/internal/model"
)

// Visibility holds the thresholds that suppress implausible segments from
// rendering. Hidden segments stay in the data model.
type Visibility struct {
	MaxTiltDeg     float64 `yaml:"max_tilt_deg" mapstructure:"max_tilt_deg"`
	MinAreaM2      float64 `yaml:"min_area_m2" mapstructure:"min_area_m2"`
	MaxAspect      float64 `yaml:"max_aspect" mapstructure:"max_aspect"`
	MinSliverSideM float64 `yaml:"min_sliver_side_m" mapstructure:"min_sliver_side_m"`
}

// DefaultVisibility returns the standard thresholds.
func DefaultVisibility() Visibility {
	return Visibility{
		MaxTiltDeg:     65,
		MinAreaM2:      4,
		MaxAspect:      10,
		MinSliverSideM: 0.6,
	}
}

// HideReason explains why a segment is suppressed.
type HideReason string

const (
	HideNone   HideReason = ""
	HideSteep  HideReason = "steep"
	HideSmall  HideReason = "small"
	HideSliver HideReason = "sliver"
)

// Classify returns the first reason the segment should be hidden, or HideNone.
func (vis Visibility) Classify(seg model.Segment, fp Footprint) HideReason {
	if math.Abs(seg.TiltDegrees) >= vis.MaxTiltDeg {
		return HideSteep
	}
	area := fp.Area()
	if seg.AreaMeters2 != nil {
		area = *seg.AreaMeters2
	}
	if area < vis.MinAreaM2 {
		return HideSmall
	}
	minSide := math.Min(fp.WidthU, fp.HeightV)
	aspect := math.Max(fp.WidthU, fp.HeightV) / math.Max(minSide, 1e-3)
	if aspect > vis.MaxAspect && minSide < vis.MinSliverSideM {
		return HideSliver
	}
	return HideNone
}

// Hidden reports whether the segment is suppressed.
func (vis Visibility) Hidden(seg model.Segment, fp Footprint) bool {
	return vis.Classify(seg, fp) != HideNone
}
