package canopy

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/solarsim/solarsim/pkg/geo"
)

const defaultMemCacheSize = 20

// Service is the canopy tile service: quadkey addressing, windowed fetches,
// and the two cache tiers. Concurrent requests for the same key share a
// single upstream read via singleflight, which also gives the single-writer
// per-key guarantee for cache fills.
type Service struct {
	reader WindowReader
	mem    *memCache
	store  *Store // may be nil (memory-only)
	group  singleflight.Group
	zoom   int
	logger *zap.SugaredLogger
}

// ServiceConfig configures a canopy Service.
type ServiceConfig struct {
	Zoom         int // fixed quadkey zoom of the upstream tile store
	MemCacheSize int
}

// NewService creates a Service over the given window reader and optional
// persistent store.
func NewService(reader WindowReader, store *Store, cfg ServiceConfig, logger *zap.SugaredLogger) *Service {
	size := cfg.MemCacheSize
	if size <= 0 {
		size = defaultMemCacheSize
	}
	return &Service{
		reader: reader,
		mem:    newMemCache(size),
		store:  store,
		zoom:   cfg.Zoom,
		logger: logger,
	}
}

// FetchTile returns the full tile for a quadkey. Returns (nil, nil) when no
// data exists for that area or the upstream is temporarily unreachable; the
// caller retries on the next interaction.
func (s *Service) FetchTile(ctx context.Context, key string) (*Tile, error) {
	if !geo.ValidQuadKey(key) {
		return nil, fmt.Errorf("invalid quadkey %q", key)
	}
	tile, _, err := s.fetch(ctx, key, key, nil)
	return tile, err
}

// FetchRegion performs a windowed read around a point, buffered by
// bufferDeg degrees on each side. Regions spanning a tile boundary are
// stitched from the covering tiles. The cached flag reports whether every
// covering tile was served from a cache tier without an upstream read.
func (s *Service) FetchRegion(ctx context.Context, lat, lng, bufferDeg float64) (tile *Tile, cached bool, err error) {
	coords := geo.Coordinates{Latitude: lat, Longitude: lng}
	if err := coords.Validate(); err != nil {
		return nil, false, err
	}
	if bufferDeg <= 0 {
		return nil, false, fmt.Errorf("buffer must be positive, got %v", bufferDeg)
	}

	region := geo.Bounds{
		South: lat - bufferDeg,
		North: lat + bufferDeg,
		West:  lng - bufferDeg,
		East:  lng + bufferDeg,
	}

	// Covering tile range at the service zoom. Almost always one tile;
	// up to four when the buffer straddles a corner.
	x0, y0 := geo.TileXY(region.North, region.West, s.zoom)
	x1, y1 := geo.TileXY(region.South, region.East, s.zoom)

	var tiles []*Tile
	cached = true
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			key := geo.QuadKey(x, y, s.zoom)
			cacheKey := fmt.Sprintf("%s@%.5f,%.5f,%.5f,%.5f", key, region.South, region.West, region.North, region.East)
			tile, hit, err := s.fetch(ctx, key, cacheKey, &region)
			if err != nil {
				return nil, false, err
			}
			cached = cached && hit
			if tile != nil {
				tiles = append(tiles, tile)
			}
		}
	}

	switch len(tiles) {
	case 0:
		return nil, false, nil
	case 1:
		return tiles[0], cached, nil
	default:
		stitched, err := StitchTiles(tiles, region)
		return stitched, cached, err
	}
}

// fetch runs the cache hierarchy: memory, persistent store, then a
// de-duplicated upstream read. The hit flag reports whether a cache tier
// answered without touching the upstream.
func (s *Service) fetch(ctx context.Context, key, cacheKey string, window *geo.Bounds) (*Tile, bool, error) {
	if tile, ok := s.mem.get(cacheKey); ok {
		return tile, true, nil
	}

	if s.store != nil {
		tile, err := s.store.Get(ctx, cacheKey)
		if err != nil {
			s.logger.Warnf("canopy store read failed for %s: %v", cacheKey, err)
		} else if tile != nil {
			s.mem.put(cacheKey, tile)
			return tile, true, nil
		}
	}

	v, err, _ := s.group.Do(cacheKey, func() (any, error) {
		tile, err := s.reader.ReadWindow(ctx, key, window)
		if err != nil {
			return nil, err
		}
		s.mem.put(cacheKey, tile)
		if s.store != nil {
			if err := s.store.Put(ctx, cacheKey, tile); err != nil {
				s.logger.Warnf("canopy store write failed for %s: %v", cacheKey, err)
			}
		}
		return tile, nil
	})
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, false, nil
		}
		if errors.Is(err, ErrTransient) {
			s.logger.Warnf("canopy fetch failed for %s: %v", key, err)
			return nil, false, nil
		}
		return nil, false, err
	}
	return v.(*Tile), false, nil
}
