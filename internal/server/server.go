// Package server exposes the solar and canopy pipelines over HTTP: sun-hours
// queries, shaded summaries, tree detection, the canopy tile proxy, and the
// climate history proxy.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/solarsim/solarsim/internal/canopy"
	"github.com/solarsim/solarsim/internal/telemetry"
	"github.com/solarsim/solarsim/internal/trees"
	"github.com/solarsim/solarsim/pkg/config"
	"github.com/solarsim/solarsim/pkg/responseformat"
)

// Server is the REST server over the solarsim services.
type Server struct {
	cfg       config.HTTPData
	canopy    *canopy.Service
	scheduler *trees.Scheduler
	recorder  *telemetry.Recorder
	climate   *climateProxy
	formatter *responseformat.Formatter
	logger    *zap.SugaredLogger
	http      http.Server
}

// New creates the server and its routes.
func New(cfg *config.Data, canopySvc *canopy.Service, scheduler *trees.Scheduler, recorder *telemetry.Recorder, logger *zap.SugaredLogger) *Server {
	s := &Server{
		cfg:       cfg.HTTP,
		canopy:    canopySvc,
		scheduler: scheduler,
		recorder:  recorder,
		climate:   newClimateProxy(cfg.Climate, logger),
		formatter: responseformat.NewFormatter(),
		logger:    logger,
	}

	router := mux.NewRouter()
	router.Use(s.logMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sunhours", s.handleSunHours).Methods(http.MethodGet)
	api.HandleFunc("/sunhours/shade", s.handleSunHoursShade).Methods(http.MethodPost)
	api.HandleFunc("/season/shade", s.handleSeasonShade).Methods(http.MethodPost)
	api.HandleFunc("/energy", s.handleEnergy).Methods(http.MethodPost)
	api.HandleFunc("/trees/detect", s.handleDetectTrees).Methods(http.MethodPost)
	api.HandleFunc("/shadow", s.handleShadow).Methods(http.MethodPost)
	api.HandleFunc("/canopy/{quadkey}", s.handleCanopyTile).Methods(http.MethodGet)
	api.HandleFunc("/climate", s.handleClimate).Methods(http.MethodGet)
	api.HandleFunc("/telemetry", s.handleTelemetry).Methods(http.MethodGet)

	s.http = http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("REST server listening on %s", s.cfg.ListenAddr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debugf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
