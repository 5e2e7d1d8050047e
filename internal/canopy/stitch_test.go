package canopy

import (
	"math"
	"testing"
	"time"

	"github.com/solarsim/solarsim/pkg/geo"
)

// gridTile builds a tile whose pixel values encode their row-major index.
func gridTile(key string, bounds geo.Bounds, w, h int, resolution float64) *Tile {
	heights := make([]float32, w*h)
	for i := range heights {
		heights[i] = float32(i)
	}
	return &Tile{
		Key:        key,
		Bounds:     bounds,
		Width:      w,
		Height:     h,
		Heights:    heights,
		Resolution: resolution,
		CachedAt:   time.Now(),
	}
}

func TestExtractSubregion(t *testing.T) {
	tile := gridTile("t", geo.Bounds{South: 0, North: 1, West: 0, East: 1}, 10, 10, 11132)

	t.Run("interior crop", func(t *testing.T) {
		sub, err := ExtractSubregion(tile, geo.Bounds{South: 0.4, North: 0.6, West: 0.4, East: 0.6})
		if err != nil {
			t.Fatal(err)
		}
		if sub == nil {
			t.Fatal("expected a cropped tile")
		}
		if err := sub.Validate(); err != nil {
			t.Fatalf("cropped tile invalid: %v", err)
		}
		if sub.Width >= tile.Width || sub.Height >= tile.Height {
			t.Errorf("crop %dx%d not smaller than source", sub.Width, sub.Height)
		}
		// The crop keeps source pixel values: its top-left pixel must match
		// the source pixel it came from. Row 4, col 4 for this window.
		if got, want := sub.At(0, 0), tile.At(4, 4); got != want {
			t.Errorf("top-left value = %v, expected %v", got, want)
		}
	})

	t.Run("disjoint region", func(t *testing.T) {
		sub, err := ExtractSubregion(tile, geo.Bounds{South: 5, North: 6, West: 5, East: 6})
		if err != nil {
			t.Fatal(err)
		}
		if sub != nil {
			t.Error("expected nil for a disjoint region")
		}
	})

	t.Run("overlapping edge clips", func(t *testing.T) {
		sub, err := ExtractSubregion(tile, geo.Bounds{South: 0.5, North: 1.5, West: 0.5, East: 1.5})
		if err != nil {
			t.Fatal(err)
		}
		if sub == nil {
			t.Fatal("expected a clipped tile")
		}
		if sub.Bounds.North > tile.Bounds.North+1e-9 || sub.Bounds.East > tile.Bounds.East+1e-9 {
			t.Errorf("clipped bounds %+v exceed the source tile", sub.Bounds)
		}
	})
}

func TestStitchTiles(t *testing.T) {
	// Two side-by-side tiles: west values all 5, east values all 9.
	west := gridTile("w", geo.Bounds{South: 0, North: 1, West: 0, East: 1}, 10, 10, 11132)
	east := gridTile("e", geo.Bounds{South: 0, North: 1, West: 1, East: 2}, 10, 10, 11132)
	for i := range west.Heights {
		west.Heights[i] = 5
		east.Heights[i] = 9
	}

	region := geo.Bounds{South: 0.25, North: 0.75, West: 0.5, East: 1.5}
	out, err := StitchTiles([]*Tile{west, east}, region)
	if err != nil {
		t.Fatal(err)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("stitched tile invalid: %v", err)
	}
	if out.Bounds != region {
		t.Errorf("stitched bounds = %+v, expected %+v", out.Bounds, region)
	}

	// Sample one pixel from each half.
	westVal := out.At(out.Height/2, 0)
	eastVal := out.At(out.Height/2, out.Width-1)
	if westVal != 5 {
		t.Errorf("west half value = %v, expected 5", westVal)
	}
	if eastVal != 9 {
		t.Errorf("east half value = %v, expected 9", eastVal)
	}
}

func TestStitchTilesUncoveredIsNaN(t *testing.T) {
	// One tile covering only the west half of the region.
	west := gridTile("w", geo.Bounds{South: 0, North: 1, West: 0, East: 1}, 10, 10, 11132)
	gap := gridTile("g", geo.Bounds{South: 0, North: 1, West: 3, East: 4}, 10, 10, 11132)

	region := geo.Bounds{South: 0.25, North: 0.75, West: 0.5, East: 1.5}
	out, err := StitchTiles([]*Tile{west, gap}, region)
	if err != nil {
		t.Fatal(err)
	}

	// The east half of the region is uncovered and must be NaN.
	if v := out.At(out.Height/2, out.Width-1); !math.IsNaN(float64(v)) {
		t.Errorf("uncovered pixel = %v, expected NaN", v)
	}
	// The west half is covered.
	if v := out.At(out.Height/2, 0); math.IsNaN(float64(v)) {
		t.Error("covered pixel unexpectedly NaN")
	}
}

func TestStitchTilesErrors(t *testing.T) {
	if _, err := StitchTiles(nil, geo.Bounds{South: 0, North: 1, West: 0, East: 1}); err == nil {
		t.Error("expected error for empty tile list")
	}
	tile := gridTile("t", geo.Bounds{South: 0, North: 1, West: 0, East: 1}, 4, 4, 11132)
	if _, err := StitchTiles([]*Tile{tile}, geo.Bounds{South: 1, North: 0, West: 0, East: 1}); err == nil {
		t.Error("expected error for invalid region")
	}
}
