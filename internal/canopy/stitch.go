package canopy

import (
	"fmt"
	"math"

	"github.com/solarsim/solarsim/pkg/geo"
)

// ExtractSubregion crops a tile to the intersection of its bounds and the
// requested region. Returns nil when they do not intersect.
func ExtractSubregion(tile *Tile, region geo.Bounds) (*Tile, error) {
	if err := tile.Validate(); err != nil {
		return nil, err
	}
	if err := region.Validate(); err != nil {
		return nil, err
	}

	win, ok := clipWindow(tile.Bounds, region, tile.Width, tile.Height)
	if !ok {
		return nil, nil
	}

	outW, outH := win.c1-win.c0, win.r1-win.r0
	heights := make([]float32, outW*outH)
	for row := 0; row < outH; row++ {
		src := (win.r0+row)*tile.Width + win.c0
		copy(heights[row*outW:(row+1)*outW], tile.Heights[src:src+outW])
	}

	return &Tile{
		Key:        tile.Key,
		Bounds:     pixelBounds(tile.Bounds, tile.Width, tile.Height, win.c0, win.r0, win.c1, win.r1),
		Width:      outW,
		Height:     outH,
		Heights:    heights,
		Resolution: tile.Resolution,
		CachedAt:   tile.CachedAt,
	}, nil
}

// StitchTiles resamples overlapping tiles onto one raster covering region,
// using nearest-neighbor lookups at the finest source resolution. Pixels no
// tile covers are NaN, which the extraction engine skips.
func StitchTiles(tiles []*Tile, region geo.Bounds) (*Tile, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("no tiles to stitch")
	}
	if len(tiles) == 1 {
		return ExtractSubregion(tiles[0], region)
	}

	// Use the finest source resolution for the output grid.
	resolution := math.Inf(1)
	for _, t := range tiles {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if t.Resolution < resolution {
			resolution = t.Resolution
		}
	}

	latPerPx := resolution / 111320.0
	midLat := (region.South + region.North) / 2
	lngPerPx := latPerPx / math.Cos(midLat*math.Pi/180)

	outW := int(math.Ceil((region.East - region.West) / lngPerPx))
	outH := int(math.Ceil((region.North - region.South) / latPerPx))
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	heights := make([]float32, outW*outH)
	for i := range heights {
		heights[i] = float32(math.NaN())
	}

	for row := 0; row < outH; row++ {
		lat := region.North - (float64(row)+0.5)*latPerPx
		for col := 0; col < outW; col++ {
			lng := region.West + (float64(col)+0.5)*lngPerPx
			for _, t := range tiles {
				if v, ok := sampleNearest(t, lat, lng); ok {
					heights[row*outW+col] = v
					break
				}
			}
		}
	}

	return &Tile{
		Key:        stitchKey(tiles),
		Bounds:     region,
		Width:      outW,
		Height:     outH,
		Heights:    heights,
		Resolution: resolution,
		CachedAt:   tiles[0].CachedAt,
	}, nil
}

// sampleNearest returns the tile value at the pixel containing (lat, lng).
func sampleNearest(t *Tile, lat, lng float64) (float32, bool) {
	if lat < t.Bounds.South || lat > t.Bounds.North || lng < t.Bounds.West || lng > t.Bounds.East {
		return 0, false
	}
	col := int((lng - t.Bounds.West) / (t.Bounds.East - t.Bounds.West) * float64(t.Width))
	row := int((t.Bounds.North - lat) / (t.Bounds.North - t.Bounds.South) * float64(t.Height))
	if col >= t.Width {
		col = t.Width - 1
	}
	if row >= t.Height {
		row = t.Height - 1
	}
	return t.At(row, col), true
}

func stitchKey(tiles []*Tile) string {
	key := tiles[0].Key
	for _, t := range tiles[1:] {
		key += "+" + t.Key
	}
	return key
}
