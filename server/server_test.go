package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nielsole/ppe_tile/ingest"
	"github.com/nielsole/ppe_tile/params"
	"github.com/nielsole/ppe_tile/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeatures struct {
	features []renderer.Feature
	err      error

	gotBBox renderer.BoundingBox
	gotZoom uint32
}

func (f *fakeFeatures) QueryFeatures(ctx context.Context, bbox renderer.BoundingBox, zoom uint32) ([]renderer.Feature, error) {
	f.gotBBox, f.gotZoom = bbox, zoom
	return f.features, f.err
}

func (f *fakeFeatures) Insert(ctx context.Context, features []renderer.Feature) ([]uint64, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.features = append(f.features, features...)
	return make([]uint64, len(features)), nil
}

func newTestTileServer(t *testing.T, token string) (*TileServer, *fakeFeatures) {
	t.Helper()
	config := params.DefaultServerConfig()
	config.Token = token
	features := &fakeFeatures{}
	ingester, err := ingest.NewIngester(features, 0)
	require.NoError(t, err)
	return NewTileServer(config, features, ingester), features
}

func serve(s *TileServer, req *http.Request) *http.Response {
	w := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(w, req)
	return w.Result()
}

func TestTileServer_ping(t *testing.T) {
	s, _ := newTestTileServer(t, "")
	resp := serve(s, httptest.NewRequest("GET", "http://tiles.example.com/ping", nil))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestTileServer_tile(t *testing.T) {
	s, features := newTestTileServer(t, "")
	tile := renderer.Tile{X: 1205, Y: 1539, Z: 12}
	bbox := renderer.TileToBoundingBox(tile)
	features.features = []renderer.Feature{
		{PPE: 1.5, Location: renderer.Point{Lon: (bbox.West() + bbox.East()) / 2, Lat: (bbox.South() + bbox.North()) / 2}},
	}

	resp := serve(s, httptest.NewRequest("GET", "http://tiles.example.com/tiles/12/1205/1539.png", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, bbox, features.gotBBox)
	assert.Equal(t, uint32(12), features.gotZoom)

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, renderer.TileSize, img.Bounds().Dx())
	assert.Equal(t, renderer.TileSize, img.Bounds().Dy())
	_, _, _, a := img.At(128, 128).RGBA()
	assert.NotZero(t, a, "the marker in the middle of the tile should be painted")
}

func TestTileServer_tileRejectsBadAddress(t *testing.T) {
	s, _ := newTestTileServer(t, "")
	for _, path := range []string{
		"/tiles/0/0/0.png",
		"/tiles/17/0/0.png",
		"/tiles/abc/0/0.png",
		"/tiles/4/16/0.png",
		"/tiles/4/1/1.5.png",
	} {
		resp := serve(s, httptest.NewRequest("GET", "http://tiles.example.com"+path, nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestTileServer_tileQueryFailure(t *testing.T) {
	s, features := newTestTileServer(t, "")
	features.err = errors.New("database is gone")
	resp := serve(s, httptest.NewRequest("GET", "http://tiles.example.com/tiles/3/4/2.png", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotEqual(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestTileServer_ingest(t *testing.T) {
	s, features := newTestTileServer(t, "s3cret")
	body := `[{"ppe": 1.5, "location": [-74.006, 40.7128]}, {"ppe": 3.2, "location": [-73.992, 40.7219]}]`

	resp := serve(s, httptest.NewRequest("POST", "http://tiles.example.com/features", strings.NewReader(body)))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, features.features)

	req := httptest.NewRequest("POST", "http://tiles.example.com/features", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer s3cret")
	resp = serve(s, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var result ingest.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, ingest.Result{Accepted: 2}, result)
	require.Len(t, features.features, 2)
	assert.Equal(t, renderer.GenerateAggregateID(-74.006, 40.7128), features.features[0].AggregateID)

	req = httptest.NewRequest("POST", "http://tiles.example.com/features?api_token=s3cret", strings.NewReader(body))
	resp = serve(s, req)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestTileServer_ingestInvalid(t *testing.T) {
	s, features := newTestTileServer(t, "")
	for _, body := range []string{
		`{"ppe": 12, "location": [0, 0]}`,
		`{"ppe": 1, "location": [0, 95]}`,
		`not json`,
	} {
		resp := serve(s, httptest.NewRequest("POST", "http://tiles.example.com/features", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, body)
	}
	assert.Empty(t, features.features)
}

func TestTileServer_ingestStoreFailure(t *testing.T) {
	s, features := newTestTileServer(t, "")
	features.err = errors.New("disk full")
	resp := serve(s, httptest.NewRequest("POST", "http://tiles.example.com/features", strings.NewReader(`{"ppe": 1, "location": [0, 0]}`)))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestTileServer_metrics(t *testing.T) {
	s, _ := newTestTileServer(t, "")
	serve(s, httptest.NewRequest("GET", "http://tiles.example.com/tiles/3/4/2.png", nil))
	resp := serve(s, httptest.NewRequest("GET", "http://tiles.example.com/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ppetile_tile_render_seconds_count 1")
}
