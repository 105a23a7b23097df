// Package v1 implements the versioned HTTP routes.
package v1

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/infrastructure/api/middleware"
	"github.com/harmonium-fm/harmonium/infrastructure/api/v1/dto"
)

// TrackSearcher runs the hybrid track-search pipeline.
type TrackSearcher interface {
	HybridSearch(ctx context.Context, spec search.QuerySpec) ([]search.Result, error)
}

// UserSearcher runs the substring user-search path.
type UserSearcher interface {
	SearchUsers(ctx context.Context, text string, limit int) ([]search.UserResult, error)
}

// SearchRouter handles the search endpoints.
type SearchRouter struct {
	tracks TrackSearcher
	users  UserSearcher
	logger *slog.Logger
}

// NewSearchRouter creates a new SearchRouter.
func NewSearchRouter(tracks TrackSearcher, users UserSearcher, logger *slog.Logger) *SearchRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchRouter{tracks: tracks, users: users, logger: logger}
}

// Routes returns the chi router for search endpoints.
func (r *SearchRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/tracks", r.SearchTracks)
	router.Get("/users", r.SearchUsers)

	return router
}

// SearchTracks handles GET /api/v1/search/tracks?q=&limit=&threshold=.
// Invalid parameters fail with 400 before any model or store work happens.
func (r *SearchRouter) SearchTracks(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()

	limit, err := intParam(query.Get("limit"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	threshold, err := thresholdParam(query.Get("threshold"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	spec, err := search.NewQuerySpec(query.Get("q"), limit, threshold)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	results, err := r.tracks.HybridSearch(req.Context(), spec)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	data := make([]dto.TrackResult, len(results))
	for i, res := range results {
		data[i] = trackResult(res)
	}
	middleware.WriteJSON(w, http.StatusOK, data)
}

// SearchUsers handles GET /api/v1/search/users?q=&limit=.
func (r *SearchRouter) SearchUsers(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()

	limit, err := intParam(query.Get("limit"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	results, err := r.users.SearchUsers(req.Context(), query.Get("q"), limit)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	data := make([]dto.UserResult, len(results))
	for i, res := range results {
		data[i] = dto.UserResult{
			ID:          res.UserID(),
			Username:    res.Username(),
			DisplayName: res.DisplayName(),
			AvatarURL:   res.AvatarURL(),
		}
	}
	middleware.WriteJSON(w, http.StatusOK, data)
}

func trackResult(res search.Result) dto.TrackResult {
	out := dto.TrackResult{
		ID:            res.TrackID(),
		Title:         res.Title(),
		Description:   res.Description(),
		Genre:         res.Genre(),
		PrimaryArtist: res.PrimaryArtist(),
		CoverArtURL:   res.CoverArtURL(),
		Popularity:    res.Popularity(),
		LikeCount:     res.LikeCount(),
		Similarity:    res.Similarity(),
	}
	if owner := res.Owner(); owner != nil {
		out.Owner = &dto.TrackOwner{ID: owner.ID(), DisplayName: owner.DisplayName()}
	}
	return out
}

// intParam parses an optional integer query parameter. Absent means zero,
// which the domain replaces with its default.
func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer", search.ErrInvalidQuery)
	}
	return n, nil
}

// thresholdParam parses an optional threshold. Absent means -1, which the
// domain replaces with its default.
func thresholdParam(raw string) (float64, error) {
	if raw == "" {
		return -1, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: threshold must be a number", search.ErrInvalidQuery)
	}
	return f, nil
}
