package persistence

import "time"

// TrackModel is the GORM model for the tracks table.
//
// The embedding column is deliberately absent: its type differs per backend
// (VECTOR(n) on PostgreSQL, JSON text on SQLite) so the vector stores manage
// it with raw SQL instead of AutoMigrate.
type TrackModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Title         string `gorm:"not null;index"`
	Description   string
	Genre         string `gorm:"index"`
	PrimaryArtist string
	CoverArtURL   string
	IsPublic      bool `gorm:"index"`
	Popularity    int64
	LikeCount     int64
	UserID        *int64 `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for TrackModel.
func (TrackModel) TableName() string { return "tracks" }

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Username    string `gorm:"uniqueIndex;not null"`
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for UserModel.
func (UserModel) TableName() string { return "users" }
