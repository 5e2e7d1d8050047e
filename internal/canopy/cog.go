package canopy

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/solarsim/solarsim/pkg/geo"
)

// WindowReader is the narrow interface over the remote raster format: give
// it a tile key and an optional geographic window, get back decoded heights.
// The GeoTIFF specifics stay behind this boundary.
type WindowReader interface {
	ReadWindow(ctx context.Context, key string, window *geo.Bounds) (*Tile, error)
}

// COGReader reads windows out of cloud-optimized GeoTIFF tiles over HTTP
// using byte-range requests, so a small garden-sized window never downloads
// a full multi-megabyte tile.
type COGReader struct {
	baseURL string
	client  *http.Client
}

// NewCOGReader creates a reader against a tile store at baseURL; tiles are
// addressed as {baseURL}/{quadkey}.tif.
func NewCOGReader(baseURL string, client *http.Client) *COGReader {
	if client == nil {
		client = http.DefaultClient
	}
	return &COGReader{baseURL: baseURL, client: client}
}

// headerFetchSize covers the TIFF header, IFD, and tag value arrays for
// cloud-optimized layouts, which front-load all of them.
const headerFetchSize = 64 * 1024

// ReadWindow fetches and decodes the part of the keyed tile intersecting
// window. A nil window reads the whole tile. Returns ErrNoData for missing
// tiles and ErrTransient-wrapped errors for network failures.
func (r *COGReader) ReadWindow(ctx context.Context, key string, window *geo.Bounds) (*Tile, error) {
	tileBounds, err := geo.QuadKeyBounds(key)
	if err != nil {
		return nil, fmt.Errorf("invalid tile key: %w", err)
	}

	url := fmt.Sprintf("%s/%s.tif", r.baseURL, key)
	header, err := r.fetchRange(ctx, url, 0, headerFetchSize)
	if err != nil {
		return nil, err
	}

	tf, err := parseTIFF(header)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", key, err)
	}

	// Clip the requested window to the tile, in pixel space.
	c0, r0, c1, r1 := 0, 0, tf.width, tf.height
	outBounds := tileBounds
	if window != nil {
		clipped, ok := clipWindow(tileBounds, *window, tf.width, tf.height)
		if !ok {
			return nil, ErrNoData
		}
		c0, r0, c1, r1 = clipped.c0, clipped.r0, clipped.c1, clipped.r1
		outBounds = pixelBounds(tileBounds, tf.width, tf.height, c0, r0, c1, r1)
	}

	outW, outH := c1-c0, r1-r0
	heights := make([]float32, outW*outH)

	// Fetch and decode only the blocks the window touches.
	for _, blk := range tf.blocksFor(c0, r0, c1, r1) {
		raw, err := r.fetchRange(ctx, url, blk.offset, blk.size)
		if err != nil {
			return nil, err
		}
		pixels, err := tf.decodeBlock(raw)
		if err != nil {
			return nil, fmt.Errorf("tile %s block at %d: %w", key, blk.offset, err)
		}
		copyBlock(heights, outW, c0, r0, c1, r1, blk, pixels)
	}

	latMeters := (outBounds.North - outBounds.South) * 111320.0
	tile := &Tile{
		Key:        key,
		Bounds:     outBounds,
		Width:      outW,
		Height:     outH,
		Heights:    heights,
		Resolution: latMeters / float64(outH),
		CachedAt:   time.Now(),
	}
	if err := tile.Validate(); err != nil {
		return nil, err
	}
	return tile, nil
}

// fetchRange issues one HTTP byte-range request. Servers may return 200
// with the whole body for small files; both are handled.
func (r *COGReader) fetchRange(ctx context.Context, url string, offset, size int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+size-1))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoData
	case resp.StatusCode == http.StatusOK:
		// No range support: read the full body and slice.
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		if offset >= int64(len(body)) {
			return nil, fmt.Errorf("range %d beyond file size %d", offset, len(body))
		}
		end := offset + size
		if end > int64(len(body)) {
			end = int64(len(body))
		}
		return body[offset:end], nil
	case resp.StatusCode == http.StatusPartialContent:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return body, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: upstream status %d", ErrTransient, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}
}

// tiffFile is the decoded structure of a single-band TIFF: dimensions,
// block layout, and sample encoding.
type tiffFile struct {
	order       binary.ByteOrder
	width       int
	height      int
	bits        int
	sampleFmt   int
	compression int

	tiled       bool
	blockW      int
	blockH      int
	offsets     []int64
	byteCounts  []int64
	rowsPerBlk  int
	blocksAcros int
}

type blockRef struct {
	offset int64
	size   int64
	px     int // pixel x of block origin
	py     int // pixel y of block origin
	w      int // valid pixels across (edge blocks are narrower)
	h      int // valid pixels down
	stride int // decoded row stride (padded block width)
}

const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagStripOffsets    = 273
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339

	compressionNone    = 1
	compressionDeflate = 8

	sampleFormatUint  = 1
	sampleFormatFloat = 3
)

// parseTIFF reads the header and first IFD out of the front of the file.
// Only the classic (non-Big) TIFF layout is supported; the canopy tile
// store publishes classic COGs.
func parseTIFF(data []byte) (*tiffFile, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("truncated TIFF header")
	}
	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a TIFF file")
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, fmt.Errorf("unsupported TIFF variant")
	}

	ifdOff := int64(order.Uint32(data[4:8]))
	if ifdOff+2 > int64(len(data)) {
		return nil, fmt.Errorf("IFD beyond header fetch")
	}

	tf := &tiffFile{order: order, bits: 32, sampleFmt: sampleFormatUint, compression: compressionNone}

	count := int(order.Uint16(data[ifdOff : ifdOff+2]))
	entries := ifdOff + 2
	if entries+int64(count)*12 > int64(len(data)) {
		return nil, fmt.Errorf("IFD entries beyond header fetch")
	}

	for i := 0; i < count; i++ {
		e := data[entries+int64(i)*12:]
		tag := int(order.Uint16(e[0:2]))
		typ := int(order.Uint16(e[2:4]))
		n := int(order.Uint32(e[4:8]))

		switch tag {
		case tagImageWidth:
			tf.width = int(tagScalar(order, e, typ))
		case tagImageLength:
			tf.height = int(tagScalar(order, e, typ))
		case tagBitsPerSample:
			tf.bits = int(tagScalar(order, e, typ))
		case tagCompression:
			tf.compression = int(tagScalar(order, e, typ))
		case tagSampleFormat:
			tf.sampleFmt = int(tagScalar(order, e, typ))
		case tagPredictor:
			if p := int(tagScalar(order, e, typ)); p != 1 {
				return nil, fmt.Errorf("unsupported TIFF predictor %d", p)
			}
		case tagTileWidth:
			tf.blockW = int(tagScalar(order, e, typ))
			tf.tiled = true
		case tagTileLength:
			tf.blockH = int(tagScalar(order, e, typ))
		case tagRowsPerStrip:
			tf.rowsPerBlk = int(tagScalar(order, e, typ))
		case tagTileOffsets, tagStripOffsets:
			vals, err := tagArray(order, data, e, typ, n)
			if err != nil {
				return nil, err
			}
			tf.offsets = vals
		case tagTileByteCounts, tagStripByteCounts:
			vals, err := tagArray(order, data, e, typ, n)
			if err != nil {
				return nil, err
			}
			tf.byteCounts = vals
		}
	}

	if tf.width < 1 || tf.height < 1 {
		return nil, fmt.Errorf("missing raster dimensions")
	}
	if len(tf.offsets) == 0 || len(tf.offsets) != len(tf.byteCounts) {
		return nil, fmt.Errorf("missing block offsets")
	}
	if tf.compression != compressionNone && tf.compression != compressionDeflate {
		return nil, fmt.Errorf("unsupported TIFF compression %d", tf.compression)
	}
	switch {
	case tf.bits == 32 && tf.sampleFmt == sampleFormatFloat:
	case tf.bits == 8 && tf.sampleFmt == sampleFormatUint:
	case tf.bits == 16 && tf.sampleFmt == sampleFormatUint:
	default:
		return nil, fmt.Errorf("unsupported sample encoding: %d bits, format %d", tf.bits, tf.sampleFmt)
	}

	if tf.tiled {
		if tf.blockH < 1 || tf.blockW < 1 {
			return nil, fmt.Errorf("missing tile dimensions")
		}
		tf.blocksAcros = (tf.width + tf.blockW - 1) / tf.blockW
	} else {
		if tf.rowsPerBlk < 1 {
			tf.rowsPerBlk = tf.height
		}
		tf.blockW = tf.width
		tf.blockH = tf.rowsPerBlk
		tf.blocksAcros = 1
	}
	return tf, nil
}

// tagScalar reads an inline SHORT or LONG tag value.
func tagScalar(order binary.ByteOrder, e []byte, typ int) uint32 {
	if typ == 3 { // SHORT
		return uint32(order.Uint16(e[8:10]))
	}
	return order.Uint32(e[8:12])
}

// tagArray reads a SHORT or LONG value array, inline or at its offset.
func tagArray(order binary.ByteOrder, data, e []byte, typ, n int) ([]int64, error) {
	size := 4
	if typ == 3 {
		size = 2
	}
	var raw []byte
	if n*size <= 4 {
		raw = e[8 : 8+n*size]
	} else {
		off := int64(order.Uint32(e[8:12]))
		if off+int64(n*size) > int64(len(data)) {
			return nil, fmt.Errorf("tag value array beyond header fetch")
		}
		raw = data[off : off+int64(n*size)]
	}
	vals := make([]int64, n)
	for i := 0; i < n; i++ {
		if typ == 3 {
			vals[i] = int64(order.Uint16(raw[i*2:]))
		} else {
			vals[i] = int64(order.Uint32(raw[i*4:]))
		}
	}
	return vals, nil
}

// blocksFor returns the blocks intersecting the pixel window [c0,c1)x[r0,r1).
func (tf *tiffFile) blocksFor(c0, r0, c1, r1 int) []blockRef {
	var blocks []blockRef
	for by := r0 / tf.blockH; by*tf.blockH < r1; by++ {
		for bx := c0 / tf.blockW; bx*tf.blockW < c1; bx++ {
			idx := by*tf.blocksAcros + bx
			if idx >= len(tf.offsets) {
				continue
			}
			w := tf.blockW
			h := tf.blockH
			if (bx+1)*tf.blockW > tf.width {
				w = tf.width - bx*tf.blockW
			}
			if (by+1)*tf.blockH > tf.height {
				h = tf.height - by*tf.blockH
			}
			blocks = append(blocks, blockRef{
				offset: tf.offsets[idx],
				size:   tf.byteCounts[idx],
				px:     bx * tf.blockW,
				py:     by * tf.blockH,
				w:      w,
				h:      h,
				stride: tf.blockW,
			})
		}
	}
	return blocks
}

// decodeBlock decompresses one block and converts its samples to float32
// meters. Tiled TIFFs pad edge blocks to the full block size.
func (tf *tiffFile) decodeBlock(raw []byte) ([]float32, error) {
	if tf.compression == compressionDeflate {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("deflate open failed: %w", err)
		}
		defer zr.Close()
		raw, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("deflate read failed: %w", err)
		}
	}

	bytesPer := tf.bits / 8
	n := len(raw) / bytesPer
	pixels := make([]float32, n)
	for i := 0; i < n; i++ {
		switch tf.bits {
		case 32:
			pixels[i] = math.Float32frombits(tf.order.Uint32(raw[i*4:]))
		case 16:
			pixels[i] = float32(tf.order.Uint16(raw[i*2:]))
		default:
			pixels[i] = float32(raw[i])
		}
	}
	return pixels, nil
}

// copyBlock copies the intersection of a decoded block into the output
// window buffer.
func copyBlock(out []float32, outW, c0, r0, c1, r1 int, blk blockRef, pixels []float32) {
	stride := blk.stride

	rowStart := maxInt(r0, blk.py)
	rowEnd := minInt(r1, blk.py+blk.h)
	colStart := maxInt(c0, blk.px)
	colEnd := minInt(c1, blk.px+blk.w)

	for row := rowStart; row < rowEnd; row++ {
		srcBase := (row-blk.py)*stride + (colStart - blk.px)
		dstBase := (row-r0)*outW + (colStart - c0)
		copy(out[dstBase:dstBase+(colEnd-colStart)], pixels[srcBase:srcBase+(colEnd-colStart)])
	}
}

type pixelWindow struct {
	c0, r0, c1, r1 int
}

// clipWindow converts a geographic window to tile pixel coordinates,
// clipped to the tile. Returns false when they do not intersect.
func clipWindow(tile geo.Bounds, window geo.Bounds, w, h int) (pixelWindow, bool) {
	if !tile.Intersects(window) {
		return pixelWindow{}, false
	}
	lngPerPx := (tile.East - tile.West) / float64(w)
	latPerPx := (tile.North - tile.South) / float64(h)

	c0 := int(math.Floor((window.West - tile.West) / lngPerPx))
	c1 := int(math.Ceil((window.East - tile.West) / lngPerPx))
	r0 := int(math.Floor((tile.North - window.North) / latPerPx))
	r1 := int(math.Ceil((tile.North - window.South) / latPerPx))

	c0 = maxInt(0, c0)
	r0 = maxInt(0, r0)
	c1 = minInt(w, c1)
	r1 = minInt(h, r1)
	if c1 <= c0 || r1 <= r0 {
		return pixelWindow{}, false
	}
	return pixelWindow{c0: c0, r0: r0, c1: c1, r1: r1}, true
}

// pixelBounds returns the geographic bounds of a pixel-aligned window.
func pixelBounds(tile geo.Bounds, w, h, c0, r0, c1, r1 int) geo.Bounds {
	lngPerPx := (tile.East - tile.West) / float64(w)
	latPerPx := (tile.North - tile.South) / float64(h)
	return geo.Bounds{
		West:  tile.West + float64(c0)*lngPerPx,
		East:  tile.West + float64(c1)*lngPerPx,
		North: tile.North - float64(r0)*latPerPx,
		South: tile.North - float64(r1)*latPerPx,
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
