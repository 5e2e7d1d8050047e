// Package canopy fetches, caches, and windows remote canopy-height rasters.
// Tiles are single-band 32-bit float GeoTIFFs addressed by Web-Mercator
// quadkey and read with HTTP byte-range requests so only the needed window
// is downloaded. Caching is two-tier: a bounded in-memory map with in-flight
// request de-duplication, backed by a bounded persistent SQLite store.
package canopy

import (
	"errors"
	"fmt"
	"time"

	"github.com/solarsim/solarsim/pkg/geo"
)

// ErrNoData marks a tile that does not exist upstream (HTTP 404). Callers
// treat this as "no canopy data here", a normal outcome.
var ErrNoData = errors.New("no canopy data for tile")

// ErrTransient marks a network-level failure. The caller may retry on the
// next user interaction; the service never retries on its own.
var ErrTransient = errors.New("transient canopy fetch failure")

// Tile is a decoded height raster. Heights is row-major, row 0 at the north
// edge, values in meters.
type Tile struct {
	Key        string     `json:"tileKey" msgpack:"key"`
	Bounds     geo.Bounds `json:"bounds" msgpack:"bounds"`
	Width      int        `json:"width" msgpack:"width"`
	Height     int        `json:"height" msgpack:"height"`
	Heights    []float32  `json:"heights" msgpack:"heights"`
	Resolution float64    `json:"resolution" msgpack:"resolution"` // meters per pixel
	CachedAt   time.Time  `json:"cachedAt" msgpack:"cachedAt"`
}

// Validate checks the raster invariants.
func (t *Tile) Validate() error {
	if t.Width < 1 || t.Height < 1 {
		return fmt.Errorf("invalid tile dimensions %dx%d", t.Width, t.Height)
	}
	if len(t.Heights) != t.Width*t.Height {
		return fmt.Errorf("tile data length %d does not match %dx%d", len(t.Heights), t.Width, t.Height)
	}
	return t.Bounds.Validate()
}

// At returns the height at pixel (row, col).
func (t *Tile) At(row, col int) float32 {
	return t.Heights[row*t.Width+col]
}
