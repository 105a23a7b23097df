package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonium-fm/harmonium/application/service"
	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/domain/track"
)

// backfillStore pairs a track listing with the vector store it feeds: an
// upserted embedding removes the track from the missing set, exactly as the
// real stores behave.
type backfillStore struct {
	mu       sync.Mutex
	tracks   []track.Track
	embedded map[int64]bool
	listErr  error
	upserts  int
}

func newBackfillStore(tracks []track.Track) *backfillStore {
	return &backfillStore{tracks: tracks, embedded: make(map[int64]bool)}
}

func (s *backfillStore) ByIDs(context.Context, []int64) ([]track.Track, error) {
	return nil, nil
}

func (s *backfillStore) MissingEmbeddings(_ context.Context, limit int) ([]track.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]track.Track, 0, limit)
	for _, t := range s.tracks {
		if !t.IsPublic() || s.embedded[t.ID()] {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *backfillStore) Save(_ context.Context, t track.Track) (track.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, t)
	return t, nil
}

func (s *backfillStore) UpsertEmbedding(_ context.Context, trackID int64, _ []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedded[trackID] = true
	s.upserts++
	return nil
}

func (s *backfillStore) ClearEmbedding(_ context.Context, trackID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.embedded, trackID)
	return nil
}

func (s *backfillStore) embeddedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.embedded)
}

// vectorStore completes the search.VectorStore contract over a backfillStore;
// the backfill never queries, only writes.
type vectorStore struct{ *backfillStore }

func (v vectorStore) QueryNearest(context.Context, []float64, int, float64) ([]search.Match, error) {
	return nil, nil
}

func makeTracks(n int) []track.Track {
	out := make([]track.Track, n)
	for i := range out {
		out[i] = track.New(int64(i+1), fmt.Sprintf("Track %d", i+1),
			track.WithGenre("ambient"), track.WithPublic(true))
	}
	return out
}

func TestBackfill_OneFailureDoesNotAbortTheRun(t *testing.T) {
	store := newBackfillStore(makeTracks(100))
	p := &fakeProvider{embedFn: func(text string) ([]float64, error) {
		if strings.Contains(text, "Track 42") {
			return nil, errors.New("inference failed")
		}
		vec := make([]float64, 384)
		vec[0] = 1
		return vec, nil
	}}

	svc := service.NewBackfill(p, vectorStore{store}, store,
		service.WithBatchSize(10), service.WithConcurrency(4))
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 99, report.Processed())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 99, store.embeddedCount())
	assert.False(t, store.embedded[42], "the failed track must stay unembedded")
}

func TestBackfill_Idempotent(t *testing.T) {
	store := newBackfillStore(makeTracks(7))
	p := &fakeProvider{}

	svc := service.NewBackfill(p, vectorStore{store}, store, service.WithBatchSize(3))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, report.Processed())
	assert.Zero(t, report.Failed())

	report, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Processed())
	assert.Zero(t, report.Failed())
	assert.Equal(t, 7, store.upserts, "a second run must not re-embed anything")
}

func TestBackfill_EmptyMetadataCountsAsFailed(t *testing.T) {
	tracks := makeTracks(2)
	tracks = append(tracks, track.New(3, "   ", track.WithPublic(true)))
	store := newBackfillStore(tracks)

	svc := service.NewBackfill(&fakeProvider{}, vectorStore{store}, store)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed())
	assert.Equal(t, 1, report.Failed())
}

func TestBackfill_InitializeFailureAborts(t *testing.T) {
	store := newBackfillStore(makeTracks(3))
	boom := errors.New("model load failed")

	svc := service.NewBackfill(&fakeProvider{initErr: boom}, vectorStore{store}, store)
	report, err := svc.Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, report.Processed())
	assert.Zero(t, store.embeddedCount())
}

func TestBackfill_ListFailureAborts(t *testing.T) {
	store := newBackfillStore(makeTracks(3))
	store.listErr = errors.New("connection refused")

	svc := service.NewBackfill(&fakeProvider{}, vectorStore{store}, store)
	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, store.listErr)
}

func TestBackfill_Cancellation(t *testing.T) {
	store := newBackfillStore(makeTracks(50))
	ctx, cancel := context.WithCancel(context.Background())

	p := &fakeProvider{embedFn: func(string) ([]float64, error) {
		cancel()
		vec := make([]float64, 384)
		vec[0] = 1
		return vec, nil
	}}

	svc := service.NewBackfill(p, vectorStore{store}, store,
		service.WithBatchSize(5), service.WithConcurrency(1))
	_, err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackfill_SaveTrackEmbedsSynchronously(t *testing.T) {
	store := newBackfillStore(nil)
	svc := service.NewBackfill(&fakeProvider{}, vectorStore{store}, store)

	saved, err := svc.SaveTrack(context.Background(), track.New(1, "Night Drive",
		track.WithGenre("synthwave"), track.WithPublic(true)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.ID())
	assert.True(t, store.embedded[1])

	// Nothing left for a subsequent backfill run.
	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Processed())
}

func TestBackfill_SaveTrackDegradesWhenProviderIsDown(t *testing.T) {
	store := newBackfillStore(nil)
	p := &fakeProvider{embedErr: errors.New("model not loaded")}
	svc := service.NewBackfill(p, vectorStore{store}, store)

	saved, err := svc.SaveTrack(context.Background(), track.New(2, "Ocean Breeze", track.WithPublic(true)))
	require.NoError(t, err, "a failed embedding must not fail the save")
	assert.Equal(t, int64(2), saved.ID())
	assert.False(t, store.embedded[2])

	// The record stays eligible for backfill once the provider recovers.
	p.embedErr = nil
	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed())
	assert.True(t, store.embedded[2])
}

func TestBackfill_SaveTrackSkipsPrivateTracks(t *testing.T) {
	store := newBackfillStore(nil)
	svc := service.NewBackfill(&fakeProvider{}, vectorStore{store}, store)

	_, err := svc.SaveTrack(context.Background(), track.New(3, "Unlisted Demo", track.WithPublic(false)))
	require.NoError(t, err)
	assert.Zero(t, store.upserts)
}

func TestBackfill_ConcurrencyIsBounded(t *testing.T) {
	store := newBackfillStore(makeTracks(20))

	var inFlight, peak atomic.Int32
	p := &fakeProvider{embedFn: func(string) ([]float64, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		vec := make([]float64, 384)
		vec[0] = 1
		return vec, nil
	}}

	svc := service.NewBackfill(p, vectorStore{store}, store,
		service.WithBatchSize(20), service.WithConcurrency(3))
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 20, report.Processed())
	assert.LessOrEqual(t, peak.Load(), int32(3))
}
