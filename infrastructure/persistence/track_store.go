package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/harmonium-fm/harmonium/domain/track"
	"github.com/harmonium-fm/harmonium/internal/database"
)

// TrackStore implements track.Store using GORM.
type TrackStore struct {
	db     database.Database
	mapper TrackMapper
}

// NewTrackStore creates a new TrackStore.
func NewTrackStore(db database.Database) TrackStore {
	return TrackStore{db: db}
}

// ByIDs returns the tracks with the given IDs, owners attached. Missing IDs
// are silently omitted; the result carries no ordering guarantee.
func (s TrackStore) ByIDs(ctx context.Context, ids []int64) ([]track.Track, error) {
	if len(ids) == 0 {
		return []track.Track{}, nil
	}

	var models []TrackModel
	if err := s.db.Session(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}

	owners, err := s.loadOwners(ctx, models)
	if err != nil {
		return nil, err
	}

	tracks := make([]track.Track, len(models))
	for i, m := range models {
		var owner *UserModel
		if m.UserID != nil {
			owner = owners[*m.UserID]
		}
		tracks[i] = s.mapper.ToDomain(m, owner)
	}
	return tracks, nil
}

// MissingEmbeddings returns up to limit public tracks that have no stored
// embedding, ordered by ID ascending so repeated backfill batches progress
// deterministically.
func (s TrackStore) MissingEmbeddings(ctx context.Context, limit int) ([]track.Track, error) {
	var models []TrackModel
	query := s.db.Session(ctx).
		Where("is_public = ? AND embedding IS NULL", true).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("load tracks missing embeddings: %w", err)
	}

	tracks := make([]track.Track, len(models))
	for i, m := range models {
		tracks[i] = s.mapper.ToDomain(m, nil)
	}
	return tracks, nil
}

// Save creates or updates a track.
func (s TrackStore) Save(ctx context.Context, t track.Track) (track.Track, error) {
	model := s.mapper.ToModel(t)

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "genre", "primary_artist",
			"cover_art_url", "is_public", "popularity", "like_count", "user_id",
			"updated_at",
		}),
	}).Create(&model)
	if result.Error != nil {
		return track.Track{}, fmt.Errorf("save track: %w", result.Error)
	}

	var owner *UserModel
	if model.UserID != nil {
		owners, err := s.loadOwners(ctx, []TrackModel{model})
		if err != nil {
			return track.Track{}, err
		}
		owner = owners[*model.UserID]
	}
	return s.mapper.ToDomain(model, owner), nil
}

func (s TrackStore) loadOwners(ctx context.Context, models []TrackModel) (map[int64]*UserModel, error) {
	ids := make([]int64, 0, len(models))
	seen := make(map[int64]bool, len(models))
	for _, m := range models {
		if m.UserID != nil && !seen[*m.UserID] {
			seen[*m.UserID] = true
			ids = append(ids, *m.UserID)
		}
	}
	if len(ids) == 0 {
		return map[int64]*UserModel{}, nil
	}

	var users []UserModel
	if err := s.db.Session(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load track owners: %w", err)
	}

	owners := make(map[int64]*UserModel, len(users))
	for i := range users {
		owners[users[i].ID] = &users[i]
	}
	return owners, nil
}
