// Package trees extracts discrete tree positions from canopy-height rasters
// by local-maximum detection with canopy radius estimation. Extraction is
// pure CPU work over a height array and geographic bounds; it knows nothing
// about networking or tile formats.
package trees

import (
	"fmt"
	"math"
	"sort"

	"github.com/solarsim/solarsim/pkg/geo"
)

// DetectedTree is one tree found in a raster. Positions are pixel centers
// converted to geographic coordinates; heights and radii are meters.
type DetectedTree struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Height       float64 `json:"height"`
	CanopyRadius float64 `json:"canopyRadius"`
	AutoDetected bool    `json:"autoDetected"`
}

// Options tunes the extraction. Zero values take the defaults below.
type Options struct {
	// MinHeight is the minimum canopy height, meters, to consider a pixel.
	MinHeight float64
	// SearchRadiusPixels is the Euclidean radius of the local-maximum
	// neighborhood test.
	SearchRadiusPixels int
	// CanopyRadiusRatio is the height-to-radius fallback heuristic.
	CanopyRadiusRatio float64
	// RadiusFalloffThreshold is the fraction of the peak height at which
	// the radial walk stops. Tunable; 0.5 matches the upstream default
	// but has not been validated against ground truth.
	RadiusFalloffThreshold float64
	// MaxTrees caps the result at the N tallest trees.
	MaxTrees int
	// SmoothingKernel, when >= 3 and odd, applies a 2-D median filter
	// before detection to suppress single-pixel noise.
	SmoothingKernel int
}

const (
	defaultMinHeight        = 2.0
	defaultSearchRadius     = 5
	defaultRadiusRatio      = 0.25
	defaultFalloffThreshold = 0.5
	defaultMaxTrees         = 200
)

func (o Options) withDefaults() Options {
	if o.MinHeight <= 0 {
		o.MinHeight = defaultMinHeight
	}
	if o.SearchRadiusPixels <= 0 {
		o.SearchRadiusPixels = defaultSearchRadius
	}
	if o.CanopyRadiusRatio <= 0 {
		o.CanopyRadiusRatio = defaultRadiusRatio
	}
	if o.RadiusFalloffThreshold <= 0 || o.RadiusFalloffThreshold >= 1 {
		o.RadiusFalloffThreshold = defaultFalloffThreshold
	}
	if o.MaxTrees <= 0 {
		o.MaxTrees = defaultMaxTrees
	}
	return o
}

type candidate struct {
	row, col int
	height   float64
}

// Extract scans the raster for local maxima and returns detected trees,
// tallest first. Repeated runs over identical input produce identical
// output: plateau ties resolve to the smallest row, then column index.
func Extract(heights []float32, width, height int, bounds geo.Bounds, opts Options) ([]DetectedTree, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid raster dimensions %dx%d", width, height)
	}
	if len(heights) != width*height {
		return nil, fmt.Errorf("raster length %d does not match %dx%d", len(heights), width, height)
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	if opts.SmoothingKernel >= 3 {
		smoothed, err := MedFilt2D(heights, width, height, opts.SmoothingKernel)
		if err != nil {
			return nil, err
		}
		heights = smoothed
	}

	var candidates []candidate
	r := opts.SearchRadiusPixels
	r2 := r * r

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			h := float64(heights[row*width+col])
			if math.IsNaN(h) || math.IsInf(h, 0) {
				continue
			}
			if h < opts.MinHeight {
				continue
			}
			if isLocalMax(heights, width, height, row, col, h, r, r2) {
				candidates = append(candidates, candidate{row: row, col: col, height: h})
			}
		}
	}

	// Tallest first; equal heights keep row/col order for determinism.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].height > candidates[j].height
	})
	if len(candidates) > opts.MaxTrees {
		candidates = candidates[:opts.MaxTrees]
	}

	pxMeters := pixelSizeMeters(bounds, width, height)
	trees := make([]DetectedTree, 0, len(candidates))
	for _, c := range candidates {
		lat, lng := pixelToLatLng(bounds, width, height, c.row, c.col)
		trees = append(trees, DetectedTree{
			Lat:          lat,
			Lng:          lng,
			Height:       c.height,
			CanopyRadius: canopyRadius(heights, width, height, c, pxMeters, opts),
			AutoDetected: true,
		})
	}
	return trees, nil
}

// isLocalMax tests the pixel against a circular Euclidean neighborhood.
// NaN neighbors are skipped; infinite neighbors are invalid heights and are
// skipped too. A plateau neighbor of equal height defeats the candidate
// only when it precedes it in row-then-column order, so exactly one pixel
// of a flat plateau survives.
func isLocalMax(heights []float32, width, height, row, col int, h float64, r, r2 int) bool {
	for dy := -r; dy <= r; dy++ {
		ny := row + dy
		if ny < 0 || ny >= height {
			continue
		}
		for dx := -r; dx <= r; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if dx*dx+dy*dy > r2 {
				continue
			}
			nx := col + dx
			if nx < 0 || nx >= width {
				continue
			}
			nh := float64(heights[ny*width+nx])
			if math.IsNaN(nh) || math.IsInf(nh, 0) {
				continue
			}
			if nh > h {
				return false
			}
			if nh == h && (ny < row || (ny == row && nx < col)) {
				return false
			}
		}
	}
	return true
}

// pixelToLatLng converts a pixel center (offset 0.5) to geographic
// coordinates; row 0 is the north edge.
func pixelToLatLng(bounds geo.Bounds, width, height, row, col int) (lat, lng float64) {
	lat = bounds.North - (float64(row)+0.5)/float64(height)*(bounds.North-bounds.South)
	lng = bounds.West + (float64(col)+0.5)/float64(width)*(bounds.East-bounds.West)
	return lat, lng
}

// pixelSizeMeters approximates the ground size of one pixel from the raster
// bounds, averaged over axes at the raster's center latitude.
func pixelSizeMeters(bounds geo.Bounds, width, height int) float64 {
	latMeters := (bounds.North - bounds.South) * 111320.0 / float64(height)
	midLat := (bounds.North + bounds.South) / 2
	lngMeters := (bounds.East - bounds.West) * 111320.0 * math.Cos(midLat*math.Pi/180) / float64(width)
	return (latMeters + lngMeters) / 2
}

// canopyRadius picks between the raster-derived radius estimate and the
// height-ratio heuristic. The estimate wins only when it is plausible:
// strictly positive and smaller than the tree height.
func canopyRadius(heights []float32, width, height int, c candidate, pxMeters float64, opts Options) float64 {
	estimate := EstimateCanopyRadiusFromRaster(heights, width, height, c.row, c.col, opts.RadiusFalloffThreshold)
	if estimate > 0 {
		meters := estimate * pxMeters
		if meters > 0 && meters < c.height {
			return meters
		}
	}
	return c.height * opts.CanopyRadiusRatio
}
