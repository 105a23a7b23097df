package search

import (
	"math"
	"sort"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 (opposite) and 1 (identical direction).
// Returns 0 if either vector has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// ClampSimilarity maps a raw similarity (or 1 − cosine distance) into the
// [0,1] range the result contract requires.
func ClampSimilarity(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// Candidate holds a stored embedding with its track ID, used by the exact
// in-memory ranking path.
type Candidate struct {
	trackID   int64
	embedding []float64
}

// NewCandidate creates a Candidate, defensively copying the vector.
func NewCandidate(trackID int64, embedding []float64) Candidate {
	vec := make([]float64, len(embedding))
	copy(vec, embedding)
	return Candidate{trackID: trackID, embedding: vec}
}

// TrackID returns the candidate's track ID.
func (c Candidate) TrackID() int64 { return c.trackID }

// Embedding returns a copy of the candidate's embedding.
func (c Candidate) Embedding() []float64 {
	vec := make([]float64, len(c.embedding))
	copy(vec, c.embedding)
	return vec
}

// RankNearest scores every candidate against the query vector and returns up
// to limit matches with similarity >= minSimilarity, ordered by similarity
// descending with ties broken by lower track ID. The ordering is fully
// deterministic so results are stable across runs.
func RankNearest(query []float64, candidates []Candidate, limit int, minSimilarity float64) []Match {
	if len(candidates) == 0 || limit <= 0 {
		return []Match{}
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		sim := ClampSimilarity(CosineSimilarity(query, c.embedding))
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, NewMatch(c.trackID, sim))
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].similarity != matches[j].similarity {
			return matches[i].similarity > matches[j].similarity
		}
		return matches[i].trackID < matches[j].trackID
	})

	if limit < len(matches) {
		matches = matches[:limit]
	}
	return matches
}
