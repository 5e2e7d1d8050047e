package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/solarsim/solarsim/internal/telemetry"
	"github.com/solarsim/solarsim/internal/trees"
	"github.com/solarsim/solarsim/pkg/geo"
	"github.com/solarsim/solarsim/pkg/shade"
	"github.com/solarsim/solarsim/pkg/shadow"
	"github.com/solarsim/solarsim/pkg/solar"
	"github.com/solarsim/solarsim/pkg/sunhours"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.formatter.WriteResponse(w, r, map[string]string{"status": "ok", "service": "solarsim"})
}

// parseCoords reads lat/lng query parameters and validates them.
func parseCoords(r *http.Request) (geo.Coordinates, error) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		return geo.Coordinates{}, fmt.Errorf("missing or invalid 'lat' parameter")
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		return geo.Coordinates{}, fmt.Errorf("missing or invalid 'lng' parameter")
	}
	coords := geo.Coordinates{Latitude: lat, Longitude: lng}
	if err := coords.Validate(); err != nil {
		return geo.Coordinates{}, err
	}
	return coords, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid 'date' parameter, want YYYY-MM-DD")
	}
	return date, nil
}

func (s *Server) handleSunHours(w http.ResponseWriter, r *http.Request) {
	coords, err := parseCoords(r)
	if err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.formatter.WriteResponse(w, r, sunhours.Daily(coords, date))
}

// obstacleJSON is the wire form of an obstacle, with the type by name.
type obstacleJSON struct {
	Type      string  `json:"type"`
	Direction float64 `json:"direction"`
	Distance  float64 `json:"distance"`
	Height    float64 `json:"height"`
	Width     float64 `json:"width"`
}

func decodeObstacles(raw []obstacleJSON) ([]shade.Obstacle, error) {
	obstacles := make([]shade.Obstacle, len(raw))
	for i, o := range raw {
		typ, err := shade.ParseObstacleType(o.Type)
		if err != nil {
			return nil, err
		}
		obstacles[i] = shade.Obstacle{
			Type:      typ,
			Direction: o.Direction,
			Distance:  o.Distance,
			Height:    o.Height,
			Width:     o.Width,
		}
		if err := obstacles[i].Validate(); err != nil {
			return nil, err
		}
	}
	return obstacles, nil
}

type shadeRequest struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Date      string         `json:"date"`
	Year      int            `json:"year"`
	Season    string         `json:"season"`
	Obstacles []obstacleJSON `json:"obstacles"`
}

func (s *Server) handleSunHoursShade(w http.ResponseWriter, r *http.Request) {
	var req shadeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	coords := geo.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := coords.Validate(); err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	obstacles, err := decodeObstacles(req.Obstacles)
	if err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.formatter.WriteResponse(w, r, sunhours.DailyWithShade(coords, date, obstacles))
}

func parseSeason(raw string) (sunhours.Season, error) {
	switch raw {
	case "spring":
		return sunhours.Spring, nil
	case "summer":
		return sunhours.Summer, nil
	case "autumn", "fall":
		return sunhours.Autumn, nil
	case "winter":
		return sunhours.Winter, nil
	}
	return 0, fmt.Errorf("unknown season %q", raw)
}

func (s *Server) handleSeasonShade(w http.ResponseWriter, r *http.Request) {
	var req shadeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	coords := geo.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := coords.Validate(); err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	season, err := parseSeason(req.Season)
	if err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	year := req.Year
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	obstacles, err := decodeObstacles(req.Obstacles)
	if err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.formatter.WriteResponse(w, r, sunhours.SeasonalSummaryWithShade(coords, year, season, obstacles))
}

type energyRequest struct {
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	Date       string         `json:"date"`
	ElevationM float64        `json:"elevationM"`
	Obstacles  []obstacleJSON `json:"obstacles"`
}

func (s *Server) handleEnergy(w http.ResponseWriter, r *http.Request) {
	var req energyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	coords := geo.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := coords.Validate(); err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	obstacles, err := decodeObstacles(req.Obstacles)
	if err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.formatter.WriteResponse(w, r, sunhours.DailyEnergy(coords, date, req.ElevationM, obstacles))
}

type detectRequest struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	BufferDegrees float64 `json:"bufferDegrees"`

	MinHeight          float64 `json:"minHeight"`
	SearchRadiusPixels int     `json:"searchRadiusPixels"`
	CanopyRadiusRatio  float64 `json:"canopyRadiusRatio"`
	MaxTrees           int     `json:"maxTrees"`
}

type detectResponse struct {
	RequestID string               `json:"requestId"`
	Trees     []trees.DetectedTree `json:"trees"`
	Obstacles []shade.Obstacle     `json:"obstacles"`
}

func (s *Server) handleDetectTrees(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	coords := geo.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := coords.Validate(); err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	buffer := req.BufferDegrees
	if buffer == 0 {
		buffer = 0.001 // ~110m, a garden-sized neighborhood
	}

	cycle := telemetry.Cycle{}

	fetchStart := time.Now()
	tile, cached, err := s.canopy.FetchRegion(r.Context(), coords.Latitude, coords.Longitude, buffer)
	cycle.TileFetch = time.Since(fetchStart)
	cycle.CacheHit = cached
	if err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if tile == nil {
		// No canopy data here is a successful, empty outcome.
		s.recorder.Record(cycle)
		s.formatter.WriteResponse(w, r, detectResponse{Trees: []trees.DetectedTree{}, Obstacles: []shade.Obstacle{}})
		return
	}
	cycle.RasterPixels = tile.Width * tile.Height

	opts := trees.Options{
		MinHeight:          req.MinHeight,
		SearchRadiusPixels: req.SearchRadiusPixels,
		CanopyRadiusRatio:  req.CanopyRadiusRatio,
		MaxTrees:           req.MaxTrees,
	}

	extractStart := time.Now()
	id, results, err := s.scheduler.Submit(r.Context(), tile.Heights, tile.Width, tile.Height, tile.Bounds, opts)
	if err != nil {
		s.formatter.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	select {
	case resp := <-results:
		cycle.Extraction = time.Since(extractStart)
		if resp.Err != "" {
			s.recorder.Record(cycle)
			s.formatter.WriteError(w, http.StatusUnprocessableEntity, resp.Err)
			return
		}
		cycle.TreeCount = len(resp.Trees)
		s.recorder.Record(cycle)
		s.formatter.WriteResponse(w, r, detectResponse{
			RequestID: id,
			Trees:     resp.Trees,
			Obstacles: trees.ToObstacles(coords, resp.Trees),
		})
	case <-r.Context().Done():
		// Client went away; the scheduler discards the result.
	}
}

type shadowRequest struct {
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
	Time      string       `json:"time"`
	SlopeDeg  float64      `json:"slopeDeg"`
	AspectDeg float64      `json:"aspectDeg"`
	Obstacle  obstacleJSON `json:"obstacle"`
}

func (s *Server) handleShadow(w http.ResponseWriter, r *http.Request) {
	var req shadowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	coords := geo.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := coords.Validate(); err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	instant := time.Now().UTC()
	if req.Time != "" {
		parsed, err := time.Parse(time.RFC3339, req.Time)
		if err != nil {
			s.formatter.WriteError(w, http.StatusBadRequest, "invalid 'time' parameter, want RFC3339")
			return
		}
		instant = parsed
	}
	obstacles, err := decodeObstacles([]obstacleJSON{req.Obstacle})
	if err != nil {
		s.formatter.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sun := solar.CalcPosition(coords, instant)
	ring := shadow.ProjectGeographic(coords, obstacles[0], sun, shadow.Options{
		SlopeDeg:  req.SlopeDeg,
		AspectDeg: req.AspectDeg,
	})

	s.formatter.WriteResponse(w, r, map[string]any{
		"sun":     sun,
		"polygon": ring,
	})
}

func (s *Server) handleCanopyTile(w http.ResponseWriter, r *http.Request) {
	quadkey := mux.Vars(r)["quadkey"]
	if !geo.ValidQuadKey(quadkey) {
		s.formatter.WriteError(w, http.StatusBadRequest, "Invalid quadkey format")
		return
	}

	tile, err := s.canopy.FetchTile(r.Context(), quadkey)
	if err != nil {
		s.formatter.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tile == nil {
		s.formatter.WriteError(w, http.StatusNotFound, "Tile not found")
		return
	}
	s.formatter.WriteResponse(w, r, tile)
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	s.formatter.WriteResponse(w, r, map[string]any{
		"stats":   s.recorder.Stats(),
		"budgets": s.recorder.CheckBudgets(),
	})
}
