// Package search provides the domain types for hybrid track search: query
// specifications, result shapes, similarity math, and store contracts.
package search

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Query limits enforced before a request reaches the core.
const (
	MaxQueryLength     = 200
	MaxLimit           = 50
	DefaultLimit       = 20
	DefaultThreshold   = 0.3
	MaxUserQueryLength = 100
	MaxUserLimit       = 20
	DefaultUserLimit   = 10
)

// ErrInvalidQuery indicates a QuerySpec violates the request constraints.
var ErrInvalidQuery = errors.New("invalid search query")

// QuerySpec is an ephemeral, validated track-search request. The orchestrator
// only ever reads it.
type QuerySpec struct {
	text      string
	limit     int
	threshold float64
}

// NewQuerySpec validates and builds a QuerySpec. A zero limit takes the
// default; a negative threshold takes the default. Out-of-range values fail
// with ErrInvalidQuery.
func NewQuerySpec(text string, limit int, threshold float64) (QuerySpec, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return QuerySpec{}, fmt.Errorf("%w: empty query text", ErrInvalidQuery)
	}
	if utf8.RuneCountInString(text) > MaxQueryLength {
		return QuerySpec{}, fmt.Errorf("%w: query text exceeds %d characters", ErrInvalidQuery, MaxQueryLength)
	}

	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return QuerySpec{}, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, MaxLimit)
	}

	if threshold < 0 {
		threshold = DefaultThreshold
	}
	if threshold > 1 {
		return QuerySpec{}, fmt.Errorf("%w: threshold must be between 0 and 1", ErrInvalidQuery)
	}

	return QuerySpec{
		text:      text,
		limit:     limit,
		threshold: threshold,
	}, nil
}

// Text returns the trimmed query text.
func (q QuerySpec) Text() string { return q.text }

// Limit returns the maximum number of results.
func (q QuerySpec) Limit() int { return q.limit }

// Threshold returns the minimum similarity for vector results.
func (q QuerySpec) Threshold() float64 { return q.threshold }
