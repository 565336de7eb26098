package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// tiffSpec describes a synthetic single-band GeoTIFF for tests.
type tiffSpec struct {
	width, height int
	bits          int
	format        int
	order         binary.ByteOrder
	values        []float64
	rowsPerStrip  int
	tile          int
	deflate       bool
	predictor     bool
	minX, maxY    float64
	sx, sy        float64
	noData        string
	noGeo         bool
}

type tiffTag struct {
	tag     uint16
	typ     uint16
	count   uint32
	payload []byte
}

func (s tiffSpec) encodeSample(v float64) []byte {
	b := make([]byte, s.bits/8)
	switch {
	case s.format == sampleFloat && s.bits == 32:
		s.order.PutUint32(b, math.Float32bits(float32(v)))
	case s.format == sampleFloat && s.bits == 64:
		s.order.PutUint64(b, math.Float64bits(v))
	case s.bits == 8:
		b[0] = byte(int64(v))
	case s.bits == 16:
		s.order.PutUint16(b, uint16(int64(v)))
	case s.bits == 32:
		s.order.PutUint32(b, uint32(int64(v)))
	}
	return b
}

// encodeRows writes a block of rows, w pixels wide, sourcing pixel (x, y)
// from at. Horizontal differencing is applied when requested.
func (s tiffSpec) encodeRows(w, h int, at func(x, y int) float64) []byte {
	var buf bytes.Buffer
	for y := 0; y < h; y++ {
		prev := int64(0)
		for x := 0; x < w; x++ {
			v := at(x, y)
			if s.predictor {
				cur := int64(v)
				buf.Write(s.encodeSample(float64(cur - prev)))
				prev = cur
				continue
			}
			buf.Write(s.encodeSample(v))
		}
	}
	return buf.Bytes()
}

func (s tiffSpec) compress(t *testing.T, raw []byte) []byte {
	if !s.deflate {
		return raw
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func (s tiffSpec) pixel(x, y int) float64 {
	if x >= s.width || y >= s.height {
		return 0
	}
	return s.values[y*s.width+x]
}

func buildTIFF(t *testing.T, s tiffSpec) []byte {
	t.Helper()
	if s.order == nil {
		s.order = binary.LittleEndian
	}
	if s.format == 0 {
		s.format = sampleFloat
	}
	if s.bits == 0 {
		s.bits = 32
	}

	var chunks [][]byte
	if s.tile > 0 {
		across := (s.width + s.tile - 1) / s.tile
		down := (s.height + s.tile - 1) / s.tile
		for ty := 0; ty < down; ty++ {
			for tx := 0; tx < across; tx++ {
				raw := s.encodeRows(s.tile, s.tile, func(x, y int) float64 {
					return s.pixel(tx*s.tile+x, ty*s.tile+y)
				})
				chunks = append(chunks, s.compress(t, raw))
			}
		}
	} else {
		rps := s.rowsPerStrip
		if rps == 0 {
			rps = s.height
		}
		for y0 := 0; y0 < s.height; y0 += rps {
			rows := min(rps, s.height-y0)
			raw := s.encodeRows(s.width, rows, func(x, y int) float64 {
				return s.pixel(x, y0+y)
			})
			chunks = append(chunks, s.compress(t, raw))
		}
	}

	var out bytes.Buffer
	if s.order == binary.LittleEndian {
		out.WriteString("II")
	} else {
		out.WriteString("MM")
	}
	hdr := make([]byte, 6)
	s.order.PutUint16(hdr[0:], 42)
	out.Write(hdr)

	offsets := make([]uint32, len(chunks))
	counts := make([]uint32, len(chunks))
	for i, c := range chunks {
		offsets[i] = uint32(out.Len())
		counts[i] = uint32(len(c))
		out.Write(c)
	}
	if out.Len()%2 == 1 {
		out.WriteByte(0)
	}

	u16 := func(vs ...uint16) []byte {
		b := make([]byte, 2*len(vs))
		for i, v := range vs {
			s.order.PutUint16(b[i*2:], v)
		}
		return b
	}
	u32 := func(vs ...uint32) []byte {
		b := make([]byte, 4*len(vs))
		for i, v := range vs {
			s.order.PutUint32(b[i*4:], v)
		}
		return b
	}
	f64 := func(vs ...float64) []byte {
		b := make([]byte, 8*len(vs))
		for i, v := range vs {
			s.order.PutUint64(b[i*8:], math.Float64bits(v))
		}
		return b
	}

	compression := uint16(compressionNone)
	if s.deflate {
		compression = compressionDeflate
	}
	tags := []tiffTag{
		{tagImageWidth, typeLong, 1, u32(uint32(s.width))},
		{tagImageLength, typeLong, 1, u32(uint32(s.height))},
		{tagBitsPerSample, typeShort, 1, u16(uint16(s.bits))},
		{tagCompression, typeShort, 1, u16(compression)},
		{tagSamplesPerPixel, typeShort, 1, u16(1)},
		{tagSampleFormat, typeShort, 1, u16(uint16(s.format))},
	}
	if s.predictor {
		tags = append(tags, tiffTag{tagPredictor, typeShort, 1, u16(2)})
	}
	if s.tile > 0 {
		tags = append(tags,
			tiffTag{tagTileWidth, typeShort, 1, u16(uint16(s.tile))},
			tiffTag{tagTileLength, typeShort, 1, u16(uint16(s.tile))},
			tiffTag{tagTileOffsets, typeLong, uint32(len(offsets)), u32(offsets...)},
			tiffTag{tagTileByteCounts, typeLong, uint32(len(counts)), u32(counts...)},
		)
	} else {
		rps := s.rowsPerStrip
		if rps == 0 {
			rps = s.height
		}
		tags = append(tags,
			tiffTag{tagStripOffsets, typeLong, uint32(len(offsets)), u32(offsets...)},
			tiffTag{tagRowsPerStrip, typeLong, 1, u32(uint32(rps))},
			tiffTag{tagStripByteCounts, typeLong, uint32(len(counts)), u32(counts...)},
		)
	}
	if !s.noGeo {
		tags = append(tags,
			tiffTag{tagModelPixelScale, typeDouble, 3, f64(s.sx, s.sy, 0)},
			tiffTag{tagModelTiepoint, typeDouble, 6, f64(0, 0, 0, s.minX, s.maxY, 0)},
		)
	}
	if s.noData != "" {
		nd := append([]byte(s.noData), 0)
		tags = append(tags, tiffTag{tagGDALNoData, typeASCII, uint32(len(nd)), nd})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].tag < tags[j].tag })

	ifdOff := uint32(out.Len())
	extraOff := ifdOff + 2 + uint32(len(tags))*12 + 4
	var ifd, extra bytes.Buffer
	ifd.Write(u16(uint16(len(tags))))
	for _, tg := range tags {
		ifd.Write(u16(tg.tag, tg.typ))
		ifd.Write(u32(tg.count))
		if len(tg.payload) <= 4 {
			inline := make([]byte, 4)
			copy(inline, tg.payload)
			ifd.Write(inline)
			continue
		}
		ifd.Write(u32(extraOff + uint32(extra.Len())))
		extra.Write(tg.payload)
		if extra.Len()%2 == 1 {
			extra.WriteByte(0)
		}
	}
	ifd.Write(u32(0))
	out.Write(ifd.Bytes())
	out.Write(extra.Bytes())

	data := out.Bytes()
	s.order.PutUint32(data[4:8], ifdOff)
	return data
}
