package search

import (
	"github.com/harmonium-fm/harmonium/domain/track"
	"github.com/harmonium-fm/harmonium/domain/user"
)

// Match is a raw store hit: a track ID with its vector similarity. Keyword
// matches carry similarity 0 because they provide no vector evidence.
type Match struct {
	trackID    int64
	similarity float64
}

// NewMatch creates a new Match.
func NewMatch(trackID int64, similarity float64) Match {
	return Match{trackID: trackID, similarity: similarity}
}

// TrackID returns the matched track's ID.
func (m Match) TrackID() int64 { return m.trackID }

// Similarity returns the cosine similarity in [0,1], or 0 for keyword hits.
func (m Match) Similarity() float64 { return m.similarity }

// Result is the uniform per-candidate output shape. Both vector and keyword
// hits are normalized into it immediately after their sub-query returns, so
// the merge logic only ever sees one shape. Constructed fresh per query,
// never persisted.
type Result struct {
	track      track.Track
	similarity float64
}

// NewResult normalizes a hydrated track and its similarity into a Result.
func NewResult(t track.Track, similarity float64) Result {
	return Result{track: t, similarity: similarity}
}

// TrackID returns the track identifier.
func (r Result) TrackID() int64 { return r.track.ID() }

// Title returns the track title.
func (r Result) Title() string { return r.track.Title() }

// Description returns the track description.
func (r Result) Description() string { return r.track.Description() }

// Genre returns the track genre.
func (r Result) Genre() string { return r.track.Genre() }

// PrimaryArtist returns the primary artist name.
func (r Result) PrimaryArtist() string { return r.track.PrimaryArtist() }

// CoverArtURL returns the cover art URL.
func (r Result) CoverArtURL() string { return r.track.CoverArtURL() }

// Popularity returns the play-count popularity signal.
func (r Result) Popularity() int64 { return r.track.Popularity() }

// LikeCount returns the like count.
func (r Result) LikeCount() int64 { return r.track.LikeCount() }

// Owner returns the owning user, or nil if unknown.
func (r Result) Owner() *track.Owner { return r.track.Owner() }

// Similarity returns the vector similarity in [0,1], 0 for keyword-only hits.
func (r Result) Similarity() float64 { return r.similarity }

// UserResult is the output shape of the user-search path.
type UserResult struct {
	user user.User
}

// NewUserResult wraps a matched user.
func NewUserResult(u user.User) UserResult {
	return UserResult{user: u}
}

// UserID returns the user identifier.
func (r UserResult) UserID() int64 { return r.user.ID() }

// Username returns the unique username.
func (r UserResult) Username() string { return r.user.Username() }

// DisplayName returns the display name.
func (r UserResult) DisplayName() string { return r.user.DisplayName() }

// AvatarURL returns the avatar URL.
func (r UserResult) AvatarURL() string { return r.user.AvatarURL() }
