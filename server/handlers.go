package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nielsole/ppe_tile/ingest"
	"github.com/nielsole/ppe_tile/renderer"
	"github.com/nielsole/ppe_tile/utils"
)

// maxIngestBody bounds a single ingestion request.
const maxIngestBody = 8 << 20

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *TileServer) handleTile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tile, err := utils.ParseTileAddress(vars["z"], vars["x"], vars["y"], s.Config.MinZoom, s.Config.MaxZoom)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	bbox := renderer.TileToBoundingBox(tile)
	features, err := s.features.QueryFeatures(r.Context(), bbox, tile.Z)
	if err != nil {
		s.metrics.renderErrors.Inc()
		s.logger.Error("Failed to query features", "tile", tile, "error", err)
		http.Error(w, "Failed to query features", statusFor(err))
		return
	}

	png, err := s.pool.Render(r.Context(), tile.Z, bbox, features)
	if err != nil {
		s.metrics.renderErrors.Inc()
		s.logger.Error("Failed to render tile", "tile", tile, "error", err)
		http.Error(w, "Failed to render tile", statusFor(err))
		return
	}
	s.metrics.renderSeconds.Observe(time.Since(start).Seconds())
	s.metrics.tileFeatures.Observe(float64(len(features)))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(png); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func statusFor(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *TileServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		s.logger.Error("Failed to read request body", "error", err)
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	result, err := s.ingester.Ingest(r.Context(), body)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidFeature) {
			s.logger.Warn("Rejected features", "error", err)
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.logger.Error("Failed to store features", "error", err)
		http.Error(w, "Failed to store features", statusFor(err))
		return
	}
	s.metrics.featuresIngested.Add(float64(result.Accepted))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}
