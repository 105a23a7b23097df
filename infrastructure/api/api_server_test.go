package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/infrastructure/api"
	"github.com/harmonium-fm/harmonium/internal/metrics"
)

type stubSearcher struct{}

func (stubSearcher) HybridSearch(context.Context, search.QuerySpec) ([]search.Result, error) {
	return []search.Result{}, nil
}

func (stubSearcher) SearchUsers(context.Context, string, int) ([]search.UserResult, error) {
	return []search.UserResult{}, nil
}

func newHandler(opts ...api.APIServerOption) http.Handler {
	return api.NewAPIServer(stubSearcher{}, stubSearcher{}, opts...).Handler()
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.AddBackfill(3, 1)

	rec := httptest.NewRecorder()
	newHandler(api.WithAPIMetrics(m)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "harmonium_backfill_processed_total 3")
}

func TestMetricsEndpointAbsentWithoutCollector(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchRoutesMounted(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search/tracks?q=jazz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
}

func TestCORSPreflight(t *testing.T) {
	handler := newHandler(api.WithCORSOrigins([]string{"https://harmonium.fm"}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search/tracks", nil)
	req.Header.Set("Origin", "https://harmonium.fm")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://harmonium.fm", rec.Header().Get("Access-Control-Allow-Origin"))
}
