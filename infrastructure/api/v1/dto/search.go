// Package dto defines the wire shapes of the v1 API.
package dto

// TrackResult is one track search hit.
type TrackResult struct {
	ID            int64       `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	Genre         string      `json:"genre,omitempty"`
	PrimaryArtist string      `json:"primary_artist,omitempty"`
	CoverArtURL   string      `json:"cover_art_url,omitempty"`
	Popularity    int64       `json:"popularity"`
	LikeCount     int64       `json:"like_count"`
	Similarity    float64     `json:"similarity"`
	Owner         *TrackOwner `json:"owner,omitempty"`
}

// TrackOwner identifies the user a returned track belongs to.
type TrackOwner struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// UserResult is one user search hit.
type UserResult struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
