package config

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements Provider for SQLite database configuration.
// Settings live in a key/value table so the management UI can edit them
// without schema changes.
type SQLiteProvider struct {
	db *sql.DB
}

// NewSQLiteProvider opens the configuration database.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return &SQLiteProvider{db: db}, nil
}

// LoadConfig loads the complete configuration from the settings table.
func (s *SQLiteProvider) LoadConfig() (*Data, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	data := &Data{}
	data.HTTP.ListenAddr = settings["http.listen_addr"]
	data.Canopy.TileURL = settings["canopy.tile_url"]
	data.Canopy.StorePath = settings["canopy.store_path"]
	data.Climate.APIURL = settings["climate.api_url"]

	intSettings := map[string]*int{
		"canopy.zoom":               &data.Canopy.Zoom,
		"canopy.mem_cache_size":     &data.Canopy.MemCacheSize,
		"canopy.store_max_entries":  &data.Canopy.StoreMaxEntries,
		"canopy.store_max_age_days": &data.Canopy.StoreMaxAgeDays,
		"climate.cache_ttl_hours":   &data.Climate.CacheTTLHours,
	}
	for key, dst := range intSettings {
		raw, ok := settings[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("setting %s: invalid integer %q", key, raw)
		}
		*dst = n
	}

	data.applyDefaults()
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}

// Close closes the underlying database.
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
