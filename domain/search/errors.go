package search

import "errors"

// Error taxonomy for the search subsystem. Infrastructure failures are wrapped
// around these sentinels so callers can branch with errors.Is.
var (
	// ErrModelLoad indicates the embedding model could not be loaded. It is
	// fatal for every caller awaiting the same in-flight initialization.
	ErrModelLoad = errors.New("embedding model failed to load")

	// ErrEmptyInput indicates blank text was passed to the embedder. This is a
	// caller bug; it is rejected immediately and never retried.
	ErrEmptyInput = errors.New("cannot embed empty input")

	// ErrStoreUnavailable indicates the track store could not be reached.
	// It is never converted into an empty result set: "zero results" is
	// reserved for "no qualifying record".
	ErrStoreUnavailable = errors.New("search store unavailable")

	// ErrSearchTimeout indicates a search exceeded its request budget.
	ErrSearchTimeout = errors.New("search timed out")

	// ErrNotFound indicates an embedding operation referenced an unknown track.
	ErrNotFound = errors.New("track not found")
)
