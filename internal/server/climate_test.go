package server

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/solarsim/solarsim/internal/canopy"
	"github.com/solarsim/solarsim/internal/telemetry"
	"github.com/solarsim/solarsim/internal/trees"
	"github.com/solarsim/solarsim/pkg/config"
)

func TestClimateEndpoint(t *testing.T) {
	var upstreamCalls int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&upstreamCalls, 1)
		if got := r.URL.Query().Get("daily"); got != "temperature_2m_max,temperature_2m_min" {
			t.Errorf("daily param = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"daily":{"temperature_2m_max":[20.1]}}`))
	}))
	t.Cleanup(upstream.Close)

	logger := zap.NewNop().Sugar()
	cfg := &config.Data{}
	cfg.Climate.APIURL = upstream.URL
	cfg.Climate.CacheTTLHours = 1

	svc := canopy.NewService(&fakeWindowReader{}, nil, canopy.ServiceConfig{Zoom: 9}, logger)
	scheduler := trees.NewScheduler(logger)
	t.Cleanup(scheduler.Close)
	srv := New(cfg, svc, scheduler, telemetry.NewRecorder(50, telemetry.DefaultBudgets()), logger)
	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(ts.Close)

	var body struct {
		Daily struct {
			Max []float64 `json:"temperature_2m_max"`
		} `json:"daily"`
	}
	if code := getJSON(t, ts.URL+"/api/climate?lat=45.52&lng=-122.68", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Daily.Max) != 1 || body.Daily.Max[0] != 20.1 {
		t.Errorf("body = %+v", body)
	}

	// Same rounded coordinates hit the cache, not the upstream.
	if code := getJSON(t, ts.URL+"/api/climate?lat=45.521&lng=-122.679", nil); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if n := atomic.LoadInt64(&upstreamCalls); n != 1 {
		t.Errorf("upstream calls = %d, expected 1 (cache hit)", n)
	}

	t.Run("missing coords", func(t *testing.T) {
		if code := getJSON(t, ts.URL+"/api/climate", nil); code != http.StatusBadRequest {
			t.Errorf("status = %d, expected 400", code)
		}
	})
}

func TestClimateUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(upstream.Close)

	logger := zap.NewNop().Sugar()
	cfg := &config.Data{}
	cfg.Climate.APIURL = upstream.URL

	svc := canopy.NewService(&fakeWindowReader{}, nil, canopy.ServiceConfig{Zoom: 9}, logger)
	scheduler := trees.NewScheduler(logger)
	t.Cleanup(scheduler.Close)
	srv := New(cfg, svc, scheduler, telemetry.NewRecorder(50, telemetry.DefaultBudgets()), logger)
	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(ts.Close)

	if code := getJSON(t, ts.URL+"/api/climate?lat=45.52&lng=-122.68", nil); code != http.StatusBadGateway {
		t.Errorf("status = %d, expected 502", code)
	}
}
