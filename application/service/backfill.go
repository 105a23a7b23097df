package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/domain/track"
	"github.com/harmonium-fm/harmonium/infrastructure/provider"
	"github.com/harmonium-fm/harmonium/internal/config"
	"github.com/harmonium-fm/harmonium/internal/metrics"
)

// BackfillReport summarizes one backfill run.
type BackfillReport struct {
	processed int
	failed    int
}

// Processed returns how many tracks were successfully embedded.
func (r BackfillReport) Processed() int { return r.processed }

// Failed returns how many tracks could not be embedded.
func (r BackfillReport) Failed() int { return r.failed }

// Backfill embeds every public track that has no stored embedding. Runs are
// idempotent: already-embedded tracks are never refetched, and a re-run after
// a partial failure picks up exactly the remainder.
type Backfill struct {
	provider    provider.Provider
	vectors     search.VectorStore
	tracks      track.Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	batchSize   int
	concurrency int
}

// BackfillOption configures the Backfill service.
type BackfillOption func(*Backfill)

// WithBackfillLogger sets the logger.
func WithBackfillLogger(logger *slog.Logger) BackfillOption {
	return func(b *Backfill) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBackfillMetrics sets the metrics collector.
func WithBackfillMetrics(m *metrics.Metrics) BackfillOption {
	return func(b *Backfill) { b.metrics = m }
}

// WithBatchSize sets how many tracks are fetched per batch.
func WithBatchSize(n int) BackfillOption {
	return func(b *Backfill) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithConcurrency bounds the number of in-flight embeddings.
func WithConcurrency(n int) BackfillOption {
	return func(b *Backfill) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBackfill creates a Backfill service.
func NewBackfill(p provider.Provider, vectors search.VectorStore, tracks track.Store, opts ...BackfillOption) *Backfill {
	b := &Backfill{
		provider:    p,
		vectors:     vectors,
		tracks:      tracks,
		logger:      slog.Default(),
		batchSize:   config.DefaultBackfillBatchSize,
		concurrency: config.DefaultBackfillConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run drains the backlog of unembedded public tracks. One record failing
// never aborts the run; the report carries both counts. The returned error is
// reserved for infrastructure failures that stop the run entirely (model
// load, store listing, cancellation).
func (b *Backfill) Run(ctx context.Context) (BackfillReport, error) {
	start := time.Now()

	if err := b.provider.Initialize(ctx); err != nil {
		return BackfillReport{}, fmt.Errorf("initialize provider: %w", err)
	}

	var report BackfillReport
	attempted := make(map[int64]bool)

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		// Failed tracks stay unembedded and keep showing up in subsequent
		// listings; widening the fetch by the attempted count guarantees each
		// round can still reach new records.
		batch, err := b.tracks.MissingEmbeddings(ctx, b.batchSize+len(attempted))
		if err != nil {
			return report, fmt.Errorf("list tracks missing embeddings: %w", err)
		}

		fresh := make([]track.Track, 0, b.batchSize)
		for _, t := range batch {
			if attempted[t.ID()] {
				continue
			}
			fresh = append(fresh, t)
			if len(fresh) == b.batchSize {
				break
			}
		}
		if len(fresh) == 0 {
			break
		}

		processed, failed := b.runBatch(ctx, fresh, attempted)
		report.processed += processed
		report.failed += failed
	}

	if b.metrics != nil {
		b.metrics.AddBackfill(report.processed, report.failed)
	}
	b.logger.Info("backfill complete",
		"processed", report.processed,
		"failed", report.failed,
		"duration", time.Since(start),
	)
	return report, nil
}

// runBatch embeds one batch with bounded concurrency.
func (b *Backfill) runBatch(ctx context.Context, batch []track.Track, attempted map[int64]bool) (processed, failed int) {
	sem := semaphore.NewWeighted(int64(b.concurrency))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, t := range batch {
		attempted[t.ID()] = true

		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; count the remainder as failed and stop.
			mu.Lock()
			failed++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(t track.Track) {
			defer wg.Done()
			defer sem.Release(1)

			err := b.embedTrack(ctx, t)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				b.logger.Warn("backfill failed for track", "track_id", t.ID(), "error", err)
				return
			}
			processed++
		}(t)
	}

	wg.Wait()
	return processed, failed
}

// SaveTrack persists a track projection and refreshes its embedding in the
// same call. The save always wins: when embedding fails the stored vector is
// cleared instead, so a stale embedding never outlives a metadata change and
// the track stays eligible for the next backfill run.
func (b *Backfill) SaveTrack(ctx context.Context, t track.Track) (track.Track, error) {
	saved, err := b.tracks.Save(ctx, t)
	if err != nil {
		return track.Track{}, fmt.Errorf("save track: %w", err)
	}

	// Private tracks are never searchable, so there is nothing to embed.
	if !saved.IsPublic() {
		return saved, nil
	}

	if err := b.embedTrack(ctx, saved); err != nil {
		b.logger.Warn("embedding deferred to backfill", "track_id", saved.ID(), "error", err)
		if clearErr := b.vectors.ClearEmbedding(ctx, saved.ID()); clearErr != nil {
			b.logger.Warn("failed to clear stale embedding", "track_id", saved.ID(), "error", clearErr)
		}
	}
	return saved, nil
}

func (b *Backfill) embedTrack(ctx context.Context, t track.Track) error {
	start := time.Now()

	vec, err := b.provider.EmbedTrackMetadata(ctx, t.Metadata())
	if err != nil {
		return fmt.Errorf("embed metadata: %w", err)
	}
	if b.metrics != nil {
		b.metrics.ObserveEmbedding(time.Since(start))
	}

	if err := b.vectors.UpsertEmbedding(ctx, t.ID(), vec); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}
