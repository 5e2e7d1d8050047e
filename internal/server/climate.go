package server

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/solarsim/solarsim/pkg/config"
)

// climateProxy proxies 30-year daily temperature history from the climate
// archive API. History never changes, so responses cache with a long TTL,
// keyed by coordinates rounded to ~1km.
type climateProxy struct {
	apiURL string
	cache  *gocache.Cache
	client *http.Client
	logger *zap.SugaredLogger
}

func newClimateProxy(cfg config.ClimateData, logger *zap.SugaredLogger) *climateProxy {
	ttl := cfg.CacheTTL()
	return &climateProxy{
		apiURL: cfg.APIURL,
		cache:  gocache.New(ttl, ttl/4),
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (p *climateProxy) fetch(lat, lng float64) ([]byte, error) {
	// Round to 2 decimal places for cache efficiency.
	key := fmt.Sprintf("climate:%.2f:%.2f", lat, lng)
	if cached, ok := p.cache.Get(key); ok {
		p.logger.Debugf("climate cache hit: %s", key)
		return cached.([]byte), nil
	}

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.2f", lat))
	params.Set("longitude", fmt.Sprintf("%.2f", lng))
	params.Set("start_date", "1994-01-01")
	params.Set("end_date", "2024-12-31")
	params.Set("daily", "temperature_2m_max,temperature_2m_min")
	params.Set("timezone", "auto")

	resp, err := p.client.Get(p.apiURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("climate API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("climate API returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("climate API read failed: %w", err)
	}

	p.cache.Set(key, body, gocache.DefaultExpiration)
	p.logger.Debugf("climate cache miss, stored: %s", key)
	return body, nil
}

func (s *Server) handleClimate(w http.ResponseWriter, r *http.Request) {
	coords, err := parseCoords(r)
	if err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := s.climate.fetch(coords.Latitude, coords.Longitude)
	if err != nil {
		s.logger.Warnf("climate proxy: %v", err)
		s.formatter.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
