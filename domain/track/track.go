// Package track provides the searchable track projection and its store contracts.
package track

// Owner identifies the user a track belongs to.
type Owner struct {
	id          int64
	displayName string
}

// NewOwner creates a new Owner.
func NewOwner(id int64, displayName string) Owner {
	return Owner{id: id, displayName: displayName}
}

// ID returns the owner's user ID.
func (o Owner) ID() int64 { return o.id }

// DisplayName returns the owner's display name.
func (o Owner) DisplayName() string { return o.displayName }

// Track is the searchable projection of an uploaded track. It carries only the
// fields search needs: free-text metadata, visibility, and ranking signals.
// The embedding itself lives in the store and is never part of this value.
type Track struct {
	id            int64
	title         string
	description   string
	genre         string
	primaryArtist string
	coverArtURL   string
	isPublic      bool
	popularity    int64
	likeCount     int64
	owner         *Owner
}

// New creates a new Track projection.
func New(id int64, title string, opts ...Option) Track {
	t := Track{
		id:    id,
		title: title,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// Option configures optional Track fields.
type Option func(*Track)

// WithDescription sets the track description.
func WithDescription(s string) Option {
	return func(t *Track) { t.description = s }
}

// WithGenre sets the track genre.
func WithGenre(s string) Option {
	return func(t *Track) { t.genre = s }
}

// WithPrimaryArtist sets the primary artist name.
func WithPrimaryArtist(s string) Option {
	return func(t *Track) { t.primaryArtist = s }
}

// WithCoverArtURL sets the cover art URL.
func WithCoverArtURL(s string) Option {
	return func(t *Track) { t.coverArtURL = s }
}

// WithPublic sets the track's visibility.
func WithPublic(public bool) Option {
	return func(t *Track) { t.isPublic = public }
}

// WithPopularity sets the play-count popularity signal.
func WithPopularity(n int64) Option {
	return func(t *Track) { t.popularity = n }
}

// WithLikeCount sets the like count.
func WithLikeCount(n int64) Option {
	return func(t *Track) { t.likeCount = n }
}

// WithOwner sets the owning user.
func WithOwner(o Owner) Option {
	return func(t *Track) { t.owner = &o }
}

// ID returns the track identifier.
func (t Track) ID() int64 { return t.id }

// Title returns the track title.
func (t Track) Title() string { return t.title }

// Description returns the track description (may be empty).
func (t Track) Description() string { return t.description }

// Genre returns the track genre (may be empty).
func (t Track) Genre() string { return t.genre }

// PrimaryArtist returns the primary artist name (may be empty).
func (t Track) PrimaryArtist() string { return t.primaryArtist }

// CoverArtURL returns the cover art URL (may be empty).
func (t Track) CoverArtURL() string { return t.coverArtURL }

// IsPublic reports whether the track is eligible for search.
func (t Track) IsPublic() bool { return t.isPublic }

// Popularity returns the play-count popularity signal.
func (t Track) Popularity() int64 { return t.popularity }

// LikeCount returns the like count.
func (t Track) LikeCount() int64 { return t.likeCount }

// Owner returns the owning user, or nil if unknown.
func (t Track) Owner() *Owner {
	if t.owner == nil {
		return nil
	}
	o := *t.owner
	return &o
}

// Metadata returns the track's embeddable text fields.
func (t Track) Metadata() Metadata {
	return Metadata{
		Title:         t.title,
		Description:   t.description,
		Genre:         t.genre,
		PrimaryArtist: t.primaryArtist,
	}
}

// Metadata holds the free-text fields an embedding is derived from.
// The embedding is derived data: whenever any of these fields change the
// embedding must be recomputed (or cleared, leaving the track for backfill).
type Metadata struct {
	Title         string
	Description   string
	Genre         string
	PrimaryArtist string
}
