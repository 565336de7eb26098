package roof

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/roofsolar/internal/geo"
)

// SRID is the spatial reference of every geographic polygon built here.
const SRID = 4326

// PolygonGeom returns the footprint as a closed plane-frame polygon. The
// fallback square is centred on CenterUV.
func (f Footprint) PolygonGeom() *geom.Polygon {
	ring := f.ring()
	coords := make([]geom.Coord, 0, len(ring)+1)
	for _, p := range ring {
		coords = append(coords, geom.Coord{p.U, p.V})
	}
	coords = append(coords, coords[0])
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{coords})
}

func (f Footprint) ring() []UV {
	if len(f.PolygonUV) >= 3 {
		return f.PolygonUV
	}
	hw, hh := f.WidthU/2, f.HeightV/2
	c := f.CenterUV
	return []UV{
		{U: c.U - hw, V: c.V - hh},
		{U: c.U + hw, V: c.V - hh},
		{U: c.U + hw, V: c.V + hh},
		{U: c.U - hw, V: c.V + hh},
	}
}

// FromUV maps a plane-frame position back onto the map.
func FromUV(p UV, center geo.Vec3, basis geo.PlaneBasis, proj geo.Projector) geo.GeoPoint {
	vH := p.V * basis.CosTilt()
	h := center.Horizontal().
		Add(basis.Across.Horizontal().Scale(p.U)).
		Add(basis.SlopeH.Scale(vH))
	return proj.ToGeo(h.X, h.Z)
}

// Outline returns the segment footprint as a lon/lat polygon in SRID 4326.
func (s SegmentScene) Outline(proj geo.Projector) *geom.Polygon {
	ring := s.Footprint.ring()
	pts := make([]geo.GeoPoint, len(ring))
	for i, p := range ring {
		pts[i] = FromUV(p, s.Center, s.Basis, proj)
	}
	return GeoPolygon(pts)
}

// Outline returns the panel's ground rectangle as a lon/lat polygon.
func (p PanelScene) Outline() *geom.Polygon {
	return GeoPolygon(p.Ground[:])
}

// GeoPolygon closes pts into a single-ring lon/lat polygon in SRID 4326.
func GeoPolygon(pts []geo.GeoPoint) *geom.Polygon {
	coords := make([]geom.Coord, 0, len(pts)+1)
	for _, p := range pts {
		coords = append(coords, geom.Coord{p.Longitude, p.Latitude})
	}
	if len(coords) > 0 {
		coords = append(coords, coords[0])
	}
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{coords}).SetSRID(SRID)
}
