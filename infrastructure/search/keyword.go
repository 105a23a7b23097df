package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/internal/database"
)

// KeywordStore implements search.KeywordMatcher with a case-insensitive
// substring scan over the track metadata columns. It is the cheap fallback
// consulted when vector retrieval under-delivers, so it trades sophistication
// for predictability: popularity ordering, no scoring.
type KeywordStore struct {
	db database.Database
}

// NewKeywordStore creates a new KeywordStore.
func NewKeywordStore(db database.Database) KeywordStore {
	return KeywordStore{db: db}
}

// MatchKeyword returns up to limit public tracks whose title, description,
// genre, or primary artist contains text, ordered by popularity descending
// with ties broken by ID ascending. Matches carry similarity 0.
func (s KeywordStore) MatchKeyword(ctx context.Context, text string, limit int) ([]search.Match, error) {
	if strings.TrimSpace(text) == "" || limit <= 0 {
		return []search.Match{}, nil
	}
	pattern := "%" + strings.ToLower(text) + "%"

	var ids []int64
	err := s.db.Session(ctx).
		Raw(`
SELECT id FROM tracks
WHERE is_public = ?
  AND (LOWER(title) LIKE ?
    OR LOWER(description) LIKE ?
    OR LOWER(genre) LIKE ?
    OR LOWER(primary_artist) LIKE ?)
ORDER BY popularity DESC, id ASC
LIMIT ?`,
			true, pattern, pattern, pattern, pattern, limit).
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("match keyword: %w", err)
	}

	matches := make([]search.Match, len(ids))
	for i, id := range ids {
		matches[i] = search.NewMatch(id, 0)
	}
	return matches, nil
}
