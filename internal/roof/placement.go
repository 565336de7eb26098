package roof

import (
	"github.com/sells-group/roofsolar/internal/geo"
	"github.com/sells-group/roofsolar/internal/model"
)

// PanelStandoffM is the gap between the roof plane and the underside of a panel.
const PanelStandoffM = 0.012

// Placement is a panel positioned in its segment's plane frame.
type Placement struct {
	PanelID   int `json:"panel_id"`
	SegmentID int `json:"segment_id"`
	UV
	// VH is the horizontal downslope distance from the segment centre.
	VH float64 `json:"vh"`
	// Height is the plane height under the panel centre, in the scene's
	// vertical datum.
	Height float64 `json:"height"`
	AlongU float64 `json:"along_u"`
	AlongV float64 `json:"along_v"`
}

// PlacePanel positions panel on the plane described by basis, whose centre
// sits at segCenter (local metres, y ignored) at height heightAtCenter.
func PlacePanel(panel model.PanelPlacement, dims model.PanelDimensions, basis geo.PlaneBasis, proj geo.Projector, segCenter geo.Vec3, heightAtCenter float64) Placement {
	u, v, vH := basis.Project(proj.ToLocalVec(panel.Center).Sub(segCenter))
	alongU, alongV := dims.Oriented(panel.Orientation)
	return Placement{
		PanelID:   panel.ID,
		SegmentID: panel.SegmentIndex,
		UV:        UV{U: u, V: v},
		VH:        vH,
		Height:    heightAtCenter + basis.DropAlongSlope(vH),
		AlongU:    alongU,
		AlongV:    alongV,
	}
}

// Solid is a thin box in world space: X east, Y up, Z north.
type Solid struct {
	Center geo.Vec3 `json:"center"`
	// Axes are the box's local axes (across, down, normal).
	Axes [3]geo.Vec3 `json:"axes"`
	// Size is the extent along each of Axes.
	Size [3]float64 `json:"size"`
}

// Solid lifts the placement into a box resting on the roof plane. The box
// centre is raised by half its thickness plus PanelStandoffM along the normal.
// origin is the segment centre in world space including its elevation.
func (p Placement) Solid(basis geo.PlaneBasis, origin geo.Vec3, thickness float64) Solid {
	w := thickness/2 + PanelStandoffM
	center := origin.
		Add(basis.Across.Scale(p.U)).
		Add(basis.Down.Scale(p.V)).
		Add(basis.Normal.Scale(w))
	return Solid{
		Center: center,
		Axes:   [3]geo.Vec3{basis.Across, basis.Down, basis.Normal},
		Size:   [3]float64{p.AlongU, p.AlongV, thickness},
	}
}

// GroundCorners projects the panel rectangle onto the ground and returns its
// corners clockwise starting from (-u, -v). refLat sets the longitude scale;
// callers pass the owning segment's centre latitude.
func GroundCorners(panel model.PanelPlacement, dims model.PanelDimensions, basis geo.PlaneBasis, refLat float64) [4]geo.GeoPoint {
	alongU, alongV := dims.Oriented(panel.Orientation)
	halfU := alongU / 2
	halfV := alongV * basis.CosTilt() / 2

	mPerLon := geo.MetersPerDegLon(refLat)
	uLat, uLng := basis.Across.Z/geo.MetersPerDegLat, basis.Across.X/mPerLon
	vLat, vLng := basis.SlopeH.Z/geo.MetersPerDegLat, basis.SlopeH.X/mPerLon

	corner := func(su, sv float64) geo.GeoPoint {
		return geo.GeoPoint{
			Latitude:  panel.Center.Latitude + su*halfU*uLat + sv*halfV*vLat,
			Longitude: panel.Center.Longitude + su*halfU*uLng + sv*halfV*vLng,
		}
	}
	return [4]geo.GeoPoint{corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)}
}
