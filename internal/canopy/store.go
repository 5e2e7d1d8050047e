package canopy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

// Store is the second cache tier: decoded tiles msgpack-encoded into a
// SQLite database, bounded by entry count and age. It survives restarts so
// a returning user does not refetch tiles for their own garden.
type Store struct {
	db         *sql.DB
	maxEntries int
	maxAge     time.Duration
}

const (
	defaultStoreMaxEntries = 50
	defaultStoreMaxAge     = 7 * 24 * time.Hour
)

// NewStore opens (creating if needed) the persistent tile store at dbPath.
func NewStore(dbPath string, maxEntries int, maxAge time.Duration) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = defaultStoreMaxEntries
	}
	if maxAge <= 0 {
		maxAge = defaultStoreMaxAge
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open tile store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping tile store: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS canopy_tiles (
			cache_key TEXT PRIMARY KEY,
			data      BLOB NOT NULL,
			cached_at INTEGER NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tile store schema: %w", err)
	}

	return &Store{db: db, maxEntries: maxEntries, maxAge: maxAge}, nil
}

// Get returns the stored tile for key, or nil if absent or expired.
func (s *Store) Get(ctx context.Context, key string) (*Tile, error) {
	var blob []byte
	var cachedAt int64
	query := `SELECT data, cached_at FROM canopy_tiles WHERE cache_key = ?`
	err := s.db.QueryRowContext(ctx, query, key).Scan(&blob, &cachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tile store read failed: %w", err)
	}

	if time.Since(time.Unix(cachedAt, 0)) > s.maxAge {
		// Expired; drop it opportunistically.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM canopy_tiles WHERE cache_key = ?`, key)
		return nil, nil
	}

	var tile Tile
	if err := msgpack.Unmarshal(blob, &tile); err != nil {
		return nil, fmt.Errorf("tile store decode failed: %w", err)
	}
	return &tile, nil
}

// Put stores a tile, pruning expired and excess entries first so the
// count bound holds after the insert.
func (s *Store) Put(ctx context.Context, key string, tile *Tile) error {
	blob, err := msgpack.Marshal(tile)
	if err != nil {
		return fmt.Errorf("tile store encode failed: %w", err)
	}

	cutoff := time.Now().Add(-s.maxAge).Unix()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM canopy_tiles WHERE cached_at < ?`, cutoff); err != nil {
		return fmt.Errorf("tile store prune failed: %w", err)
	}

	// Keep the newest maxEntries-1 rows so the insert lands within bound.
	prune := `
		DELETE FROM canopy_tiles WHERE cache_key NOT IN (
			SELECT cache_key FROM canopy_tiles
			WHERE cache_key != ?
			ORDER BY cached_at DESC LIMIT ?
		) AND cache_key != ?
	`
	if _, err := s.db.ExecContext(ctx, prune, key, s.maxEntries-1, key); err != nil {
		return fmt.Errorf("tile store prune failed: %w", err)
	}

	upsert := `
		INSERT INTO canopy_tiles (cache_key, data, cached_at)
		VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			data = excluded.data,
			cached_at = excluded.cached_at
	`
	if _, err := s.db.ExecContext(ctx, upsert, key, blob, tile.CachedAt.Unix()); err != nil {
		return fmt.Errorf("tile store write failed: %w", err)
	}
	return nil
}

// Count returns the number of stored tiles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM canopy_tiles`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
