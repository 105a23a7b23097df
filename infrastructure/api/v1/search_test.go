package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/domain/track"
	"github.com/harmonium-fm/harmonium/domain/user"
	v1 "github.com/harmonium-fm/harmonium/infrastructure/api/v1"
)

type fakeTrackSearcher struct {
	results  []search.Result
	err      error
	lastSpec search.QuerySpec
}

func (f *fakeTrackSearcher) HybridSearch(_ context.Context, spec search.QuerySpec) ([]search.Result, error) {
	f.lastSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeUserSearcher struct {
	results []search.UserResult
	err     error
}

func (f *fakeUserSearcher) SearchUsers(_ context.Context, text string, limit int) ([]search.UserResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doRequest(t *testing.T, tracks *fakeTrackSearcher, users *fakeUserSearcher, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	router := v1.NewSearchRouter(tracks, users, nil).Routes()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestSearchTracks_OK(t *testing.T) {
	owner := track.NewOwner(7, "Neon Fox")
	tracks := &fakeTrackSearcher{results: []search.Result{
		search.NewResult(track.New(1, "Night Drive",
			track.WithGenre("synthwave"),
			track.WithPublic(true),
			track.WithPopularity(42),
			track.WithOwner(owner),
		), 0.91),
	}}

	rec, env := doRequest(t, tracks, &fakeUserSearcher{}, "/tracks?q=synthwave&limit=5&threshold=0.4")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	var data []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data, 1)
	assert.Equal(t, "Night Drive", data[0]["title"])
	assert.InDelta(t, 0.91, data[0]["similarity"], 1e-9)
	assert.Equal(t, "Neon Fox", data[0]["owner"].(map[string]any)["display_name"])

	// The parsed parameters reach the service intact.
	assert.Equal(t, "synthwave", tracks.lastSpec.Text())
	assert.Equal(t, 5, tracks.lastSpec.Limit())
	assert.InDelta(t, 0.4, tracks.lastSpec.Threshold(), 1e-9)
}

func TestSearchTracks_DefaultsApplied(t *testing.T) {
	tracks := &fakeTrackSearcher{}
	rec, _ := doRequest(t, tracks, &fakeUserSearcher{}, "/tracks?q=jazz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, search.DefaultLimit, tracks.lastSpec.Limit())
	assert.InDelta(t, search.DefaultThreshold, tracks.lastSpec.Threshold(), 1e-9)
}

func TestSearchTracks_EmptyResultIsSuccess(t *testing.T) {
	rec, env := doRequest(t, &fakeTrackSearcher{}, &fakeUserSearcher{}, "/tracks?q=nothing")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "[]", string(env.Data))
}

func TestSearchTracks_Validation(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing q", "/tracks"},
		{"blank q", "/tracks?q=%20%20"},
		{"limit too large", "/tracks?q=jazz&limit=51"},
		{"limit not a number", "/tracks?q=jazz&limit=ten"},
		{"threshold above one", "/tracks?q=jazz&threshold=1.5"},
		{"threshold not a number", "/tracks?q=jazz&threshold=high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doRequest(t, &fakeTrackSearcher{}, &fakeUserSearcher{}, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestSearchTracks_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"timeout", search.ErrSearchTimeout, http.StatusGatewayTimeout},
		{"model load", errors.Join(search.ErrModelLoad, errors.New("onnx session")), http.StatusServiceUnavailable},
		{"store down", errors.Join(search.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doRequest(t, &fakeTrackSearcher{err: tt.err}, &fakeUserSearcher{}, "/tracks?q=jazz")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.False(t, env.Success)
			// Internal detail never leaks to the client.
			assert.NotContains(t, env.Error, "onnx")
			assert.NotContains(t, env.Error, "dial tcp")
		})
	}
}

func TestSearchUsers_OK(t *testing.T) {
	users := &fakeUserSearcher{results: []search.UserResult{
		search.NewUserResult(user.New(3, "amara", "Amara O.", "https://cdn.example/a.png")),
	}}

	rec, env := doRequest(t, &fakeTrackSearcher{}, users, "/users?q=ama")

	assert.Equal(t, http.StatusOK, rec.Code)
	var data []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data, 1)
	assert.Equal(t, "amara", data[0]["username"])
	assert.Equal(t, "Amara O.", data[0]["display_name"])
}

func TestSearchUsers_ValidationErrorsAreBadRequests(t *testing.T) {
	users := &fakeUserSearcher{err: search.ErrInvalidQuery}
	rec, env := doRequest(t, &fakeTrackSearcher{}, users, "/users?q=")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}
