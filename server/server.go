// Package server exposes rendered tiles and feature ingestion over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/nielsole/ppe_tile/ingest"
	"github.com/nielsole/ppe_tile/params"
	"github.com/nielsole/ppe_tile/renderer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FeatureQuerier returns the features of one tile, already decimated for zoom.
type FeatureQuerier interface {
	QueryFeatures(ctx context.Context, bbox renderer.BoundingBox, zoom uint32) ([]renderer.Feature, error)
}

type FeatureIngester interface {
	Ingest(ctx context.Context, body []byte) (ingest.Result, error)
}

type TileServer struct {
	Config   *params.ServerConfig
	features FeatureQuerier
	ingester FeatureIngester
	pool     *renderer.Pool
	metrics  *metrics
	logger   *slog.Logger
}

func NewTileServer(config *params.ServerConfig, features FeatureQuerier, ingester FeatureIngester) *TileServer {
	if config == nil {
		config = params.DefaultServerConfig()
	}
	return &TileServer{
		Config:   config,
		features: features,
		ingester: ingester,
		pool:     renderer.NewPool(config.RenderWorkers, renderer.NewRasterizer(config.MarkerRadius)),
		metrics:  newMetrics(),
		logger:   slog.With("d", "web"),
	}
}

func (s *TileServer) NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(false)
	router.Use(permissiveCorsMiddleware)

	router.Path("/ping").HandlerFunc(pingPong).Methods(http.MethodGet)
	router.Path("/metrics").Handler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.Path("/tiles/{z}/{x}/{y}.png").HandlerFunc(s.handleTile).Methods(http.MethodGet)

	ingestRoutes := router.NewRoute().Subrouter()
	ingestRoutes.Use(s.tokenAuthenticationMiddleware)
	ingestRoutes.Path("/features").HandlerFunc(s.handleIngest).Methods(http.MethodPost)

	return router
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *TileServer) Run(ctx context.Context) error {
	if s.Config.Token == "" {
		s.logger.Warn("No token set, allowing all feature submissions")
	}
	handler := handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stderr, s.NewRouter()))
	srv := &http.Server{
		Addr:    s.Config.Address,
		Handler: handler,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Starting tile server", "address", s.Config.Address)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down tile server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
