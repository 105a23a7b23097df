// Package user provides the user projection consumed by the user-search path.
package user

import "context"

// User is the searchable projection of an account.
type User struct {
	id          int64
	username    string
	displayName string
	avatarURL   string
}

// New creates a new User projection.
func New(id int64, username, displayName, avatarURL string) User {
	return User{
		id:          id,
		username:    username,
		displayName: displayName,
		avatarURL:   avatarURL,
	}
}

// ID returns the user identifier.
func (u User) ID() int64 { return u.id }

// Username returns the unique username.
func (u User) Username() string { return u.username }

// DisplayName returns the display name.
func (u User) DisplayName() string { return u.displayName }

// AvatarURL returns the avatar URL (may be empty).
func (u User) AvatarURL() string { return u.avatarURL }

// Store provides substring lookup over users.
type Store interface {
	// Match returns up to limit users whose username or display name contains
	// text (case-insensitive), ordered by username ascending.
	Match(ctx context.Context, text string, limit int) ([]User, error)
}
