package persistence

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/harmonium-fm/harmonium/domain/user"
	"github.com/harmonium-fm/harmonium/internal/database"
)

// UserStore implements user.Store using GORM.
type UserStore struct {
	db     database.Database
	mapper UserMapper
}

// NewUserStore creates a new UserStore.
func NewUserStore(db database.Database) UserStore {
	return UserStore{db: db}
}

// Match returns up to limit users whose username or display name contains
// text, case-insensitively, ordered by username ascending.
func (s UserStore) Match(ctx context.Context, text string, limit int) ([]user.User, error) {
	pattern := "%" + strings.ToLower(text) + "%"

	var models []UserModel
	query := s.db.Session(ctx).
		Where("LOWER(username) LIKE ? OR LOWER(display_name) LIKE ?", pattern, pattern).
		Order("username ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("match users: %w", err)
	}

	users := make([]user.User, len(models))
	for i, m := range models {
		users[i] = s.mapper.ToDomain(m)
	}
	return users, nil
}

// Save creates or updates a user.
func (s UserStore) Save(ctx context.Context, u user.User) (user.User, error) {
	model := s.mapper.ToModel(u)

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "display_name", "avatar_url", "updated_at"}),
	}).Create(&model)
	if result.Error != nil {
		return user.User{}, fmt.Errorf("save user: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}
