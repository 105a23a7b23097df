// Package provider supplies embedding generation for search: a local ONNX
// sentence-transformer and a remote OpenAI-compatible fallback.
package provider

import (
	"context"
	"math"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/domain/track"
)

// Provider turns free text into fixed-width, unit-normalized embeddings.
type Provider interface {
	// Initialize loads the underlying model. Safe to call concurrently: one
	// load runs, everyone waits for it. A failed load may be retried by a
	// later call; a successful load is permanent for the process lifetime.
	Initialize(ctx context.Context) error

	// EmbedText embeds a single piece of free text. Blank input fails with
	// search.ErrEmptyInput.
	EmbedText(ctx context.Context, text string) ([]float64, error)

	// EmbedTrackMetadata embeds a track's metadata fields. Fully empty
	// metadata fails with search.ErrEmptyInput.
	EmbedTrackMetadata(ctx context.Context, meta track.Metadata) ([]float64, error)

	// Dimension returns the width of every vector this provider produces.
	Dimension() int

	// Close releases provider resources.
	Close() error
}

// MetadataText flattens track metadata into the single string the embedding
// is computed from. The title is repeated to weight it over the longer
// description; absent fields are skipped entirely so they contribute nothing.
func MetadataText(meta track.Metadata) string {
	parts := make([]string, 0, 5)
	if title := strings.TrimSpace(meta.Title); title != "" {
		parts = append(parts, title, title)
	}
	if artist := strings.TrimSpace(meta.PrimaryArtist); artist != "" {
		parts = append(parts, artist)
	}
	if genre := strings.TrimSpace(meta.Genre); genre != "" {
		parts = append(parts, genre)
	}
	if desc := strings.TrimSpace(meta.Description); desc != "" {
		parts = append(parts, desc)
	}
	return strings.Join(parts, " ")
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// normalize scales the vector to unit length in place and returns it.
// Zero vectors are returned unchanged.
func normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// initOnce coordinates one-time initialization with shared in-flight loads.
// Concurrent callers coalesce onto a single load; a failure clears the flight
// so a later call can retry, while success is sticky.
type initOnce struct {
	sf   singleflight.Group
	mu   sync.Mutex
	done bool
}

// Do runs load at most once concurrently. The context error is checked before
// joining a flight so cancelled callers fail fast.
func (o *initOnce) Do(ctx context.Context, load func() error) error {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err, _ := o.sf.Do("init", func() (any, error) {
		if err := load(); err != nil {
			return nil, err
		}
		o.mu.Lock()
		o.done = true
		o.mu.Unlock()
		return nil, nil
	})
	return err
}

// Done reports whether initialization has completed successfully.
func (o *initOnce) Done() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

// ensure both implementations satisfy the contract.
var (
	_ Provider = (*HugotProvider)(nil)
	_ Provider = (*OpenAIProvider)(nil)
)

// embedMetadata is the shared EmbedTrackMetadata implementation.
func embedMetadata(ctx context.Context, p Provider, meta track.Metadata) ([]float64, error) {
	text := MetadataText(meta)
	if text == "" {
		return nil, search.ErrEmptyInput
	}
	return p.EmbedText(ctx, text)
}
