// Package service provides the application services that orchestrate domain
// operations: hybrid search and the embedding backfill.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/domain/track"
	"github.com/harmonium-fm/harmonium/domain/user"
	"github.com/harmonium-fm/harmonium/infrastructure/provider"
	"github.com/harmonium-fm/harmonium/internal/config"
	"github.com/harmonium-fm/harmonium/internal/metrics"
)

// Search orchestrates the hybrid track-search pipeline: vector retrieval
// first, the keyword fallback when it under-delivers, then hydration into the
// uniform result shape.
type Search struct {
	provider      provider.Provider
	vectors       search.VectorStore
	keywords      search.KeywordMatcher
	tracks        track.Store
	users         user.Store
	logger        *slog.Logger
	metrics       *metrics.Metrics
	minVectorHits int
	userLimit     int
	timeout       time.Duration
}

// SearchOption configures the Search service.
type SearchOption func(*Search)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SearchOption {
	return func(s *Search) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) SearchOption {
	return func(s *Search) { s.metrics = m }
}

// WithMinVectorHits sets the vector result count below which the keyword
// fallback is consulted.
func WithMinVectorHits(n int) SearchOption {
	return func(s *Search) {
		if n >= 0 {
			s.minVectorHits = n
		}
	}
}

// WithTimeout sets the per-query deadline.
func WithTimeout(d time.Duration) SearchOption {
	return func(s *Search) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSearch creates a Search service.
func NewSearch(
	p provider.Provider,
	vectors search.VectorStore,
	keywords search.KeywordMatcher,
	tracks track.Store,
	users user.Store,
	opts ...SearchOption,
) *Search {
	s := &Search{
		provider:      p,
		vectors:       vectors,
		keywords:      keywords,
		tracks:        tracks,
		users:         users,
		logger:        slog.Default(),
		minVectorHits: config.DefaultMinVectorHits,
		userLimit:     config.DefaultUserSearchLimit,
		timeout:       config.DefaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HybridSearch runs the full track-search pipeline for a validated query.
// Results are ordered vector hits first (similarity descending, ties by lower
// ID), keyword-only hits after (popularity descending, ties by ID ascending),
// with each track appearing at most once.
func (s *Search) HybridSearch(ctx context.Context, spec search.QuerySpec) ([]search.Result, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, err := s.hybridSearch(ctx, spec)
	if err != nil {
		err = s.mapTimeout(ctx, err)
		s.observeError("tracks", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveSearch("tracks", time.Since(start))
	}
	s.logger.Debug("hybrid search completed",
		"query_len", len(spec.Text()),
		"results", len(results),
		"duration", time.Since(start),
	)
	return results, nil
}

func (s *Search) hybridSearch(ctx context.Context, spec search.QuerySpec) ([]search.Result, error) {
	queryVec, err := s.provider.EmbedText(ctx, spec.Text())
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vectorMatches, err := s.vectors.QueryNearest(ctx, queryVec, spec.Limit(), spec.Threshold())
	if err != nil {
		return nil, errors.Join(search.ErrStoreUnavailable, fmt.Errorf("vector query: %w", err))
	}

	merged := vectorMatches
	var keywordCount int
	if len(vectorMatches) < s.minVectorHits {
		keywordMatches, kerr := s.keywords.MatchKeyword(ctx, spec.Text(), spec.Limit()-len(vectorMatches))
		if kerr != nil {
			return nil, errors.Join(search.ErrStoreUnavailable, fmt.Errorf("keyword fallback: %w", kerr))
		}
		merged, keywordCount = mergeMatches(vectorMatches, keywordMatches, spec.Limit())
	}

	if s.metrics != nil {
		s.metrics.AddResults(metrics.SourceVector, len(vectorMatches))
		s.metrics.AddResults(metrics.SourceKeyword, keywordCount)
	}

	return s.hydrate(ctx, merged)
}

// mergeMatches appends keyword hits after vector hits, dropping any track the
// vector pass already returned. First seen wins, so a track found by both
// paths keeps its vector similarity.
func mergeMatches(vector, keyword []search.Match, limit int) ([]search.Match, int) {
	seen := make(map[int64]bool, len(vector))
	for _, m := range vector {
		seen[m.TrackID()] = true
	}

	merged := make([]search.Match, len(vector), limit)
	copy(merged, vector)

	var added int
	for _, m := range keyword {
		if len(merged) >= limit {
			break
		}
		if seen[m.TrackID()] {
			continue
		}
		seen[m.TrackID()] = true
		merged = append(merged, m)
		added++
	}
	return merged, added
}

// hydrate loads the matched tracks and normalizes them into results,
// preserving match order. Tracks deleted between matching and hydration are
// silently dropped.
func (s *Search) hydrate(ctx context.Context, matches []search.Match) ([]search.Result, error) {
	if len(matches) == 0 {
		return []search.Result{}, nil
	}

	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.TrackID()
	}

	tracks, err := s.tracks.ByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Join(search.ErrStoreUnavailable, fmt.Errorf("hydrate tracks: %w", err))
	}

	byID := make(map[int64]track.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID()] = t
	}

	results := make([]search.Result, 0, len(matches))
	for _, m := range matches {
		t, ok := byID[m.TrackID()]
		if !ok {
			continue
		}
		results = append(results, search.NewResult(t, m.Similarity()))
	}
	return results, nil
}

// SearchUsers runs the substring user-search path. A zero limit takes the
// configured default; out-of-range input fails with search.ErrInvalidQuery.
func (s *Search) SearchUsers(ctx context.Context, text string, limit int) ([]search.UserResult, error) {
	start := time.Now()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty query text", search.ErrInvalidQuery)
	}
	if utf8.RuneCountInString(text) > search.MaxUserQueryLength {
		return nil, fmt.Errorf("%w: query text exceeds %d characters", search.ErrInvalidQuery, search.MaxUserQueryLength)
	}
	if limit == 0 {
		limit = s.userLimit
	}
	if limit < 1 || limit > search.MaxUserLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", search.ErrInvalidQuery, search.MaxUserLimit)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.users.Match(ctx, text, limit)
	if err != nil {
		err = s.mapTimeout(ctx, errors.Join(search.ErrStoreUnavailable, fmt.Errorf("match users: %w", err)))
		s.observeError("users", err)
		return nil, err
	}

	results := make([]search.UserResult, len(users))
	for i, u := range users {
		results[i] = search.NewUserResult(u)
	}

	if s.metrics != nil {
		s.metrics.ObserveSearch("users", time.Since(start))
	}
	return results, nil
}

// mapTimeout converts a deadline-exceeded failure into the search timeout
// sentinel so callers see one taxonomy.
func (s *Search) mapTimeout(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(search.ErrSearchTimeout, err)
	}
	return err
}

func (s *Search) observeError(kind string, err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, search.ErrSearchTimeout):
		s.metrics.IncSearchError("timeout")
	case errors.Is(err, search.ErrModelLoad):
		s.metrics.IncSearchError("model_load")
	case errors.Is(err, search.ErrStoreUnavailable):
		s.metrics.IncSearchError("store_unavailable")
	default:
		s.metrics.IncSearchError("other")
	}
	s.logger.Error("search failed", "kind", kind, "error", err)
}
