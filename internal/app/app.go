// Package app wires the solarsim services together and manages their
// lifecycle.
package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/solarsim/solarsim/internal/canopy"
	"github.com/solarsim/solarsim/internal/log"
	"github.com/solarsim/solarsim/internal/server"
	"github.com/solarsim/solarsim/internal/telemetry"
	"github.com/solarsim/solarsim/internal/trees"
	"github.com/solarsim/solarsim/pkg/config"
)

// App represents the main application
type App struct {
	configProvider config.Provider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.Provider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return err
	}

	var store *canopy.Store
	if cfg.Canopy.StorePath != "" {
		store, err = canopy.NewStore(cfg.Canopy.StorePath, cfg.Canopy.StoreMaxEntries, cfg.Canopy.StoreMaxAge())
		if err != nil {
			return err
		}
		defer store.Close()
	}

	reader := canopy.NewCOGReader(cfg.Canopy.TileURL, &http.Client{Timeout: 60 * time.Second})
	canopySvc := canopy.NewService(reader, store, canopy.ServiceConfig{
		Zoom:         cfg.Canopy.Zoom,
		MemCacheSize: cfg.Canopy.MemCacheSize,
	}, a.logger)

	scheduler := trees.NewScheduler(a.logger)
	defer scheduler.Close()

	recorder := telemetry.NewRecorder(0, telemetry.DefaultBudgets())

	srv := server.New(cfg, canopySvc, scheduler, recorder, a.logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	case err := <-errCh:
		return err
	}

	cancel()
	if err := <-errCh; err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
