package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roofsolar/internal/geo"
)

// TIFF tags used by the decoder.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagModelTransform  = 34264
	tagGDALNoData      = 42113
)

// TIFF field types.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
)

// maxPixels caps the decoded grid so a corrupt header cannot force a huge
// allocation.
const maxPixels = 1 << 26

const (
	compressionNone     = 1
	compressionDeflate  = 8
	compressionDeflate2 = 32946

	sampleUint  = 1
	sampleInt   = 2
	sampleFloat = 3
)

var typeSizes = map[uint16]int{
	typeByte: 1, typeASCII: 1, typeShort: 2, typeLong: 4, typeRational: 8,
	typeSByte: 1, typeUndefined: 1, typeSShort: 2, typeSLong: 4, typeSRational: 8,
	typeFloat: 4, typeDouble: 8,
}

// IsGeoTIFF reports whether data starts with a classic TIFF header.
func IsGeoTIFF(data []byte) bool {
	return len(data) >= 4 &&
		(bytes.Equal(data[:4], []byte{'I', 'I', 42, 0}) || bytes.Equal(data[:4], []byte{'M', 'M', 0, 42}))
}

type ifdEntry struct {
	typ   uint16
	count uint32
	raw   []byte
}

type tiffReader struct {
	data    []byte
	order   binary.ByteOrder
	entries map[uint16]ifdEntry
}

// DecodeGeoTIFF decodes the first band of the first image in a baseline
// GeoTIFF. Strips and tiles are supported, uncompressed or deflate, with
// optional horizontal differencing. The bounding box comes from the model
// tiepoint and pixel scale tags, or a non-rotated model transformation.
func DecodeGeoTIFF(data []byte) (*Raster, error) {
	if len(data) < 8 {
		return nil, eris.New("geotiff: file too short")
	}
	tr := &tiffReader{data: data}
	switch string(data[:2]) {
	case "II":
		tr.order = binary.LittleEndian
	case "MM":
		tr.order = binary.BigEndian
	default:
		return nil, eris.New("geotiff: missing byte order mark")
	}
	if magic := tr.order.Uint16(data[2:4]); magic != 42 {
		return nil, eris.Errorf("geotiff: unsupported magic %d", magic)
	}
	if err := tr.readIFD(tr.order.Uint32(data[4:8])); err != nil {
		return nil, err
	}

	width, err := tr.scalar(tagImageWidth)
	if err != nil {
		return nil, err
	}
	height, err := tr.scalar(tagImageLength)
	if err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		return nil, eris.Errorf("geotiff: invalid dimensions %dx%d", width, height)
	}
	if width > maxPixels || height > maxPixels || width*height > maxPixels {
		return nil, eris.Errorf("geotiff: %dx%d exceeds %d pixels", width, height, maxPixels)
	}
	spp := tr.uintOr(tagSamplesPerPixel, 1)
	bits := tr.uintOr(tagBitsPerSample, 1)
	format := tr.uintOr(tagSampleFormat, sampleUint)
	compression := tr.uintOr(tagCompression, compressionNone)
	predictor := tr.uintOr(tagPredictor, 1)
	planar := tr.uintOr(tagPlanarConfig, 1)

	if bits != 8 && bits != 16 && bits != 32 && bits != 64 {
		return nil, eris.Errorf("geotiff: unsupported bits per sample %d", bits)
	}
	if format == sampleFloat && bits < 32 {
		return nil, eris.Errorf("geotiff: unsupported %d-bit float", bits)
	}
	if compression != compressionNone && compression != compressionDeflate && compression != compressionDeflate2 {
		return nil, eris.Errorf("geotiff: unsupported compression %d", compression)
	}
	if predictor != 1 && (predictor != 2 || format == sampleFloat) {
		return nil, eris.Errorf("geotiff: unsupported predictor %d", predictor)
	}

	bbox, err := tr.bbox(width, height)
	if err != nil {
		return nil, err
	}

	r := &Raster{
		Width:  int(width),
		Height: int(height),
		BBox:   bbox,
		Values: make([]float64, int(width)*int(height)),
	}
	if nd, ok := tr.noData(); ok {
		r.NoData = &nd
	}

	lay := layout{
		bytesPerSample: int(bits / 8),
		samples:        int(spp),
		format:         int(format),
		predictor:      int(predictor),
		compression:    int(compression),
		order:          tr.order,
	}
	if planar == 2 {
		lay.samples = 1
	}

	if _, tiled := tr.entries[tagTileWidth]; tiled {
		err = tr.decodeTiles(r, lay)
	} else {
		err = tr.decodeStrips(r, lay)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (tr *tiffReader) readIFD(off uint32) error {
	if int(off)+2 > len(tr.data) {
		return eris.New("geotiff: IFD offset out of range")
	}
	n := int(tr.order.Uint16(tr.data[off:]))
	tr.entries = make(map[uint16]ifdEntry, n)
	base := int(off) + 2
	if base+n*12 > len(tr.data) {
		return eris.New("geotiff: truncated IFD")
	}
	for i := 0; i < n; i++ {
		e := tr.data[base+i*12 : base+(i+1)*12]
		tag := tr.order.Uint16(e[0:2])
		typ := tr.order.Uint16(e[2:4])
		count := tr.order.Uint32(e[4:8])
		size, ok := typeSizes[typ]
		if !ok {
			continue
		}
		total := size * int(count)
		var raw []byte
		if total <= 4 {
			raw = e[8 : 8+total]
		} else {
			valOff := int(tr.order.Uint32(e[8:12]))
			if valOff+total > len(tr.data) || valOff < 0 {
				return eris.Errorf("geotiff: tag %d value out of range", tag)
			}
			raw = tr.data[valOff : valOff+total]
		}
		tr.entries[tag] = ifdEntry{typ: typ, count: count, raw: raw}
	}
	return nil
}

func (tr *tiffReader) uints(tag uint16) ([]uint64, error) {
	e, ok := tr.entries[tag]
	if !ok {
		return nil, eris.Errorf("geotiff: missing tag %d", tag)
	}
	out := make([]uint64, e.count)
	for i := range out {
		switch e.typ {
		case typeByte, typeUndefined:
			out[i] = uint64(e.raw[i])
		case typeShort:
			out[i] = uint64(tr.order.Uint16(e.raw[i*2:]))
		case typeLong:
			out[i] = uint64(tr.order.Uint32(e.raw[i*4:]))
		default:
			return nil, eris.Errorf("geotiff: tag %d has non-integer type %d", tag, e.typ)
		}
	}
	return out, nil
}

func (tr *tiffReader) scalar(tag uint16) (uint64, error) {
	v, err := tr.uints(tag)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, eris.Errorf("geotiff: empty tag %d", tag)
	}
	return v[0], nil
}

func (tr *tiffReader) uintOr(tag uint16, def uint64) uint64 {
	v, err := tr.scalar(tag)
	if err != nil {
		return def
	}
	return v
}

func (tr *tiffReader) doubles(tag uint16) ([]float64, bool) {
	e, ok := tr.entries[tag]
	if !ok || e.typ != typeDouble {
		return nil, false
	}
	out := make([]float64, e.count)
	for i := range out {
		out[i] = math.Float64frombits(tr.order.Uint64(e.raw[i*8:]))
	}
	return out, true
}

func (tr *tiffReader) bbox(width, height uint64) (geo.BBox, error) {
	var minX, maxY, sx, sy float64
	if scale, ok := tr.doubles(tagModelPixelScale); ok && len(scale) >= 2 {
		tie, ok := tr.doubles(tagModelTiepoint)
		if !ok || len(tie) < 6 {
			return geo.BBox{}, eris.New("geotiff: pixel scale without tiepoint")
		}
		sx, sy = scale[0], scale[1]
		minX = tie[3] - tie[0]*sx
		maxY = tie[4] + tie[1]*sy
	} else if m, ok := tr.doubles(tagModelTransform); ok && len(m) >= 16 {
		if m[1] != 0 || m[4] != 0 {
			return geo.BBox{}, eris.New("geotiff: rotated model transformation not supported")
		}
		sx, sy = m[0], -m[5]
		minX, maxY = m[3], m[7]
	} else {
		return geo.BBox{}, eris.New("geotiff: no georeferencing tags")
	}
	return geo.BBox{
		SW: geo.GeoPoint{Latitude: maxY - float64(height)*sy, Longitude: minX},
		NE: geo.GeoPoint{Latitude: maxY, Longitude: minX + float64(width)*sx},
	}, nil
}

func (tr *tiffReader) noData() (float64, bool) {
	e, ok := tr.entries[tagGDALNoData]
	if !ok || e.typ != typeASCII {
		return 0, false
	}
	s := strings.TrimRight(string(e.raw), "\x00 ")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type layout struct {
	bytesPerSample int
	samples        int
	format         int
	predictor      int
	compression    int
	order          binary.ByteOrder
}

func (l layout) pixelBytes() int { return l.bytesPerSample * l.samples }

// chunk reads and inflates one strip or tile. want is the decoded size.
func (tr *tiffReader) chunk(off, size uint64, want int, l layout) ([]byte, error) {
	if off+size > uint64(len(tr.data)) {
		return nil, eris.New("geotiff: chunk out of range")
	}
	raw := tr.data[off : off+size]
	var buf []byte
	if l.compression == compressionNone {
		buf = raw
	} else {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, eris.Wrap(err, "geotiff: open deflate chunk")
		}
		buf, err = io.ReadAll(zr)
		_ = zr.Close()
		if err != nil {
			return nil, eris.Wrap(err, "geotiff: inflate chunk")
		}
	}
	if len(buf) < want {
		padded := make([]byte, want)
		copy(padded, buf)
		buf = padded
	}
	return buf, nil
}

func (tr *tiffReader) decodeStrips(r *Raster, l layout) error {
	offsets, err := tr.uints(tagStripOffsets)
	if err != nil {
		return err
	}
	counts, err := tr.uints(tagStripByteCounts)
	if err != nil {
		return err
	}
	rowsPerStrip := int(tr.uintOr(tagRowsPerStrip, uint64(r.Height)))
	if rowsPerStrip <= 0 || rowsPerStrip > r.Height {
		rowsPerStrip = r.Height
	}
	strips := (r.Height + rowsPerStrip - 1) / rowsPerStrip
	if len(offsets) < strips || len(counts) < strips {
		return eris.Errorf("geotiff: expected %d strips, have %d", strips, len(offsets))
	}

	rowBytes := r.Width * l.pixelBytes()
	for s := 0; s < strips; s++ {
		rows := min(rowsPerStrip, r.Height-s*rowsPerStrip)
		buf, err := tr.chunk(offsets[s], counts[s], rows*rowBytes, l)
		if err != nil {
			return eris.Wrapf(err, "geotiff: strip %d", s)
		}
		for y := 0; y < rows; y++ {
			line := buf[y*rowBytes : (y+1)*rowBytes]
			l.undoPredictor(line, r.Width)
			dst := r.Values[(s*rowsPerStrip+y)*r.Width:]
			for x := 0; x < r.Width; x++ {
				dst[x] = l.value(line[x*l.pixelBytes():])
			}
		}
	}
	return nil
}

func (tr *tiffReader) decodeTiles(r *Raster, l layout) error {
	tw64, err := tr.scalar(tagTileWidth)
	if err != nil {
		return err
	}
	th64, err := tr.scalar(tagTileLength)
	if err != nil {
		return err
	}
	offsets, err := tr.uints(tagTileOffsets)
	if err != nil {
		return err
	}
	counts, err := tr.uints(tagTileByteCounts)
	if err != nil {
		return err
	}
	tw, th := int(tw64), int(th64)
	if tw <= 0 || th <= 0 || tw > maxPixels || th > maxPixels || tw*th > maxPixels {
		return eris.New("geotiff: invalid tile size")
	}
	across := (r.Width + tw - 1) / tw
	down := (r.Height + th - 1) / th
	if len(offsets) < across*down || len(counts) < across*down {
		return eris.Errorf("geotiff: expected %d tiles, have %d", across*down, len(offsets))
	}

	rowBytes := tw * l.pixelBytes()
	for ty := 0; ty < down; ty++ {
		for tx := 0; tx < across; tx++ {
			i := ty*across + tx
			buf, err := tr.chunk(offsets[i], counts[i], th*rowBytes, l)
			if err != nil {
				return eris.Wrapf(err, "geotiff: tile %d", i)
			}
			for y := 0; y < th; y++ {
				row := ty*th + y
				if row >= r.Height {
					break
				}
				line := buf[y*rowBytes : (y+1)*rowBytes]
				l.undoPredictor(line, tw)
				for x := 0; x < tw; x++ {
					col := tx*tw + x
					if col >= r.Width {
						break
					}
					r.Values[row*r.Width+col] = l.value(line[x*l.pixelBytes():])
				}
			}
		}
	}
	return nil
}

// undoPredictor reverses horizontal differencing on one row in place.
func (l layout) undoPredictor(line []byte, width int) {
	if l.predictor != 2 {
		return
	}
	bps := l.bytesPerSample
	stride := l.pixelBytes()
	for x := 1; x < width; x++ {
		for s := 0; s < l.samples; s++ {
			cur := line[x*stride+s*bps:]
			prev := line[(x-1)*stride+s*bps:]
			switch bps {
			case 1:
				cur[0] += prev[0]
			case 2:
				l.order.PutUint16(cur, l.order.Uint16(cur)+l.order.Uint16(prev))
			case 4:
				l.order.PutUint32(cur, l.order.Uint32(cur)+l.order.Uint32(prev))
			case 8:
				l.order.PutUint64(cur, l.order.Uint64(cur)+l.order.Uint64(prev))
			}
		}
	}
}

// value decodes the first sample at b.
func (l layout) value(b []byte) float64 {
	switch l.bytesPerSample {
	case 1:
		if l.format == sampleInt {
			return float64(int8(b[0]))
		}
		return float64(b[0])
	case 2:
		v := l.order.Uint16(b)
		if l.format == sampleInt {
			return float64(int16(v))
		}
		return float64(v)
	case 4:
		v := l.order.Uint32(b)
		switch l.format {
		case sampleFloat:
			return float64(math.Float32frombits(v))
		case sampleInt:
			return float64(int32(v))
		}
		return float64(v)
	case 8:
		v := l.order.Uint64(b)
		switch l.format {
		case sampleFloat:
			return math.Float64frombits(v)
		case sampleInt:
			return float64(int64(v))
		}
		return float64(v)
	}
	return math.NaN()
}
