package persistence

import (
	"github.com/harmonium-fm/harmonium/domain/track"
	"github.com/harmonium-fm/harmonium/domain/user"
)

// TrackMapper maps between domain Track and persistence TrackModel.
type TrackMapper struct{}

// ToDomain converts a TrackModel (and optional owner) to a domain Track.
func (TrackMapper) ToDomain(m TrackModel, owner *UserModel) track.Track {
	opts := []track.Option{
		track.WithDescription(m.Description),
		track.WithGenre(m.Genre),
		track.WithPrimaryArtist(m.PrimaryArtist),
		track.WithCoverArtURL(m.CoverArtURL),
		track.WithPublic(m.IsPublic),
		track.WithPopularity(m.Popularity),
		track.WithLikeCount(m.LikeCount),
	}
	if owner != nil {
		name := owner.DisplayName
		if name == "" {
			name = owner.Username
		}
		opts = append(opts, track.WithOwner(track.NewOwner(owner.ID, name)))
	}
	return track.New(m.ID, m.Title, opts...)
}

// ToModel converts a domain Track to a TrackModel.
func (TrackMapper) ToModel(t track.Track) TrackModel {
	m := TrackModel{
		ID:            t.ID(),
		Title:         t.Title(),
		Description:   t.Description(),
		Genre:         t.Genre(),
		PrimaryArtist: t.PrimaryArtist(),
		CoverArtURL:   t.CoverArtURL(),
		IsPublic:      t.IsPublic(),
		Popularity:    t.Popularity(),
		LikeCount:     t.LikeCount(),
	}
	if o := t.Owner(); o != nil {
		id := o.ID()
		m.UserID = &id
	}
	return m
}

// UserMapper maps between domain User and persistence UserModel.
type UserMapper struct{}

// ToDomain converts a UserModel to a domain User.
func (UserMapper) ToDomain(m UserModel) user.User {
	return user.New(m.ID, m.Username, m.DisplayName, m.AvatarURL)
}

// ToModel converts a domain User to a UserModel.
func (UserMapper) ToModel(u user.User) UserModel {
	return UserModel{
		ID:          u.ID(),
		Username:    u.Username(),
		DisplayName: u.DisplayName(),
		AvatarURL:   u.AvatarURL(),
	}
}
