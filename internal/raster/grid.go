package raster

import (
	"encoding/json"
	"io"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roofsolar/internal/geo"
)

// gridDoc is the JSON grid exchange format. Null values mark missing pixels.
type gridDoc struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	BBox   geo.BBox   `json:"bbox"`
	Values []*float64 `json:"values"`
	NoData *float64   `json:"no_data,omitempty"`
}

// DecodeGrid reads a JSON grid.
func DecodeGrid(r io.Reader) (*Raster, error) {
	var doc gridDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "grid: decode")
	}
	out := &Raster{
		Width:  doc.Width,
		Height: doc.Height,
		BBox:   doc.BBox,
		Values: make([]float64, len(doc.Values)),
		NoData: doc.NoData,
	}
	for i, v := range doc.Values {
		if v == nil {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = *v
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeGrid writes r in the JSON grid format.
func EncodeGrid(w io.Writer, r *Raster) error {
	doc := gridDoc{
		Width:  r.Width,
		Height: r.Height,
		BBox:   r.BBox,
		Values: make([]*float64, len(r.Values)),
		NoData: r.NoData,
	}
	for i, v := range r.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		doc.Values[i] = &v
	}
	return eris.Wrap(json.NewEncoder(w).Encode(doc), "grid: encode")
}
