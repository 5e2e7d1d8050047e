// Package config loads solarsim service configuration from YAML files or a
// SQLite database behind a common Provider interface.
package config

import (
	"fmt"
	"time"
)

// Provider is the configuration source abstraction.
type Provider interface {
	LoadConfig() (*Data, error)
}

// Data is the complete service configuration.
type Data struct {
	HTTP    HTTPData    `yaml:"http"`
	Canopy  CanopyData  `yaml:"canopy"`
	Climate ClimateData `yaml:"climate"`
}

// HTTPData configures the REST server.
type HTTPData struct {
	ListenAddr string `yaml:"listen_addr"`
}

// CanopyData configures the canopy tile service and its caches.
type CanopyData struct {
	TileURL         string `yaml:"tile_url"`
	Zoom            int    `yaml:"zoom"`
	MemCacheSize    int    `yaml:"mem_cache_size"`
	StorePath       string `yaml:"store_path"`
	StoreMaxEntries int    `yaml:"store_max_entries"`
	StoreMaxAgeDays int    `yaml:"store_max_age_days"`
}

// StoreMaxAge returns the persistent cache age bound as a duration.
func (c CanopyData) StoreMaxAge() time.Duration {
	return time.Duration(c.StoreMaxAgeDays) * 24 * time.Hour
}

// ClimateData configures the climate history proxy.
type ClimateData struct {
	APIURL        string `yaml:"api_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours"`
}

// CacheTTL returns the climate cache TTL as a duration.
func (c ClimateData) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// applyDefaults fills unset fields with working defaults.
func (d *Data) applyDefaults() {
	if d.HTTP.ListenAddr == "" {
		d.HTTP.ListenAddr = ":8090"
	}
	if d.Canopy.TileURL == "" {
		d.Canopy.TileURL = "https://dataforgood-fb-data.s3.amazonaws.com/forests/v1/alsgedi_global_v6_float/chm"
	}
	if d.Canopy.Zoom == 0 {
		d.Canopy.Zoom = 9
	}
	if d.Canopy.MemCacheSize == 0 {
		d.Canopy.MemCacheSize = 20
	}
	if d.Canopy.StoreMaxEntries == 0 {
		d.Canopy.StoreMaxEntries = 50
	}
	if d.Canopy.StoreMaxAgeDays == 0 {
		d.Canopy.StoreMaxAgeDays = 7
	}
	if d.Climate.APIURL == "" {
		d.Climate.APIURL = "https://archive-api.open-meteo.com/v1/archive"
	}
	if d.Climate.CacheTTLHours == 0 {
		d.Climate.CacheTTLHours = 24 * 30
	}
}

// Validate checks the loaded configuration.
func (d *Data) Validate() error {
	if d.Canopy.Zoom < 1 || d.Canopy.Zoom > 23 {
		return fmt.Errorf("canopy zoom %d out of range [1, 23]", d.Canopy.Zoom)
	}
	if d.Canopy.MemCacheSize < 1 {
		return fmt.Errorf("canopy mem_cache_size must be positive, got %d", d.Canopy.MemCacheSize)
	}
	return nil
}

// NewProvider selects a provider by backend name ("yaml" or "sqlite").
func NewProvider(backend, path string) (Provider, error) {
	switch backend {
	case "yaml":
		return NewYAMLProvider(path), nil
	case "sqlite":
		return NewSQLiteProvider(path)
	default:
		return nil, fmt.Errorf("unknown config backend %q", backend)
	}
}
