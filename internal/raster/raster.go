// Package raster decodes single-band geo-referenced grids and samples them at
// geographic points.
package raster

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roofsolar/internal/geo"
)

// Raster is a single-band grid. Row 0 is the northern edge. BBox is expressed
// in degrees.
type Raster struct {
	Width  int
	Height int
	BBox   geo.BBox
	Values []float64
	NoData *float64
}

// Sample is one sampled value. OK is false when the pixel is missing, NaN, or
// equal to the no-data marker.
type Sample struct {
	Value float64 `json:"value"`
	OK    bool    `json:"ok"`
}

// Validate checks that the grid and bounds are consistent.
func (r *Raster) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return eris.Errorf("raster: invalid dimensions %dx%d", r.Width, r.Height)
	}
	if len(r.Values) != r.Width*r.Height {
		return eris.Errorf("raster: have %d values for %dx%d grid", len(r.Values), r.Width, r.Height)
	}
	if !r.BBox.SW.IsFinite() || !r.BBox.NE.IsFinite() {
		return eris.New("raster: non-finite bounding box")
	}
	return nil
}

// PixelFor returns the nearest pixel for p, clamped to the grid.
func (r *Raster) PixelFor(p geo.GeoPoint) (col, row int) {
	minX, maxX := r.BBox.SW.Longitude, r.BBox.NE.Longitude
	minY, maxY := r.BBox.SW.Latitude, r.BBox.NE.Latitude

	fx, fy := 0.0, 0.0
	if maxX != minX {
		fx = (p.Longitude - minX) / (maxX - minX) * float64(r.Width)
	}
	if maxY != minY {
		fy = (maxY - p.Latitude) / (maxY - minY) * float64(r.Height)
	}
	return clampIndex(fx, r.Width), clampIndex(fy, r.Height)
}

func clampIndex(f float64, n int) int {
	f = math.Floor(f)
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > float64(n-1) {
		return n - 1
	}
	return int(f)
}

// At returns the value at (col, row).
func (r *Raster) At(col, row int) Sample {
	if col < 0 || row < 0 || col >= r.Width || row >= r.Height {
		return Sample{}
	}
	idx := row*r.Width + col
	if idx >= len(r.Values) {
		return Sample{}
	}
	v := r.Values[idx]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Sample{}
	}
	if r.NoData != nil && v == *r.NoData {
		return Sample{}
	}
	return Sample{Value: v, OK: true}
}

// Sample returns one sample per point, in order, using nearest-pixel lookup.
// Points with non-finite coordinates yield a missing sample.
func (r *Raster) Sample(points []geo.GeoPoint) []Sample {
	out := make([]Sample, len(points))
	for i, p := range points {
		if !p.IsFinite() {
			continue
		}
		out[i] = r.At(r.PixelFor(p))
	}
	return out
}

// Stats summarizes the valid pixels.
type Stats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// Stats scans every valid pixel.
func (r *Raster) Stats() Stats {
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			v := r.At(col, row)
			if !v.OK {
				continue
			}
			s.Count++
			sum += v.Value
			s.Min = math.Min(s.Min, v.Value)
			s.Max = math.Max(s.Max, v.Value)
		}
	}
	if s.Count == 0 {
		return Stats{}
	}
	s.Mean = sum / float64(s.Count)
	return s
}
