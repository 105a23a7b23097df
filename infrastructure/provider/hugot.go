package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/domain/track"
)

// ortSingleton holds the process-wide ONNX Runtime session and pipeline.
// ORT only allows one active session per process, so all HugotProvider
// instances must share it. The mutex serializes both session setup and
// inference (ORT is not thread-safe).
var ortSingleton struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	mu       sync.Mutex
	ready    bool
}

// HugotProvider generates embeddings locally with the all-MiniLM-L6-v2
// sentence model via hugot. The pipeline normalizes output, so every vector
// is unit length.
//
// The model can come from two sources (checked in order):
//  1. Model files on disk — a subdirectory of cacheDir containing tokenizer.json.
//  2. Statically embedded in the binary (build tag embed_model), extracted to
//     cacheDir on first use.
type HugotProvider struct {
	cacheDir string
	init     initOnce
}

// NewHugotProvider creates a HugotProvider that looks for model files in
// cacheDir. The model is not loaded until Initialize or the first embed call.
func NewHugotProvider(cacheDir string) *HugotProvider {
	return &HugotProvider{cacheDir: cacheDir}
}

// Available reports whether a usable model exists — either compiled into the
// binary (embed_model build tag) or present on disk in cacheDir.
func (h *HugotProvider) Available() bool {
	if hasEmbeddedModel {
		return true
	}
	_, err := h.diskModelPath()
	return err == nil
}

// Initialize loads the model. Concurrent callers share one load; a failed
// load can be retried by a later call.
func (h *HugotProvider) Initialize(ctx context.Context) error {
	return h.init.Do(ctx, h.load)
}

func (h *HugotProvider) load() error {
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	if ortSingleton.ready {
		return nil
	}

	session, err := newHugotSession()
	if err != nil {
		return errors.Join(search.ErrModelLoad, fmt.Errorf("create hugot session: %w", err))
	}

	modelPath, err := h.resolveModelPath()
	if err != nil {
		_ = session.Destroy()
		return errors.Join(search.ErrModelLoad, err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "track-metadata-embeddings",
		Options: []hugot.FeatureExtractionOption{
			pipelines.WithNormalization(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return errors.Join(search.ErrModelLoad, fmt.Errorf("create feature extraction pipeline: %w", err))
	}

	ortSingleton.session = session
	ortSingleton.pipeline = pipeline
	ortSingleton.ready = true
	return nil
}

// resolveModelPath returns the path to a usable model directory, preferring
// files already on disk over extracting the embedded model.
func (h *HugotProvider) resolveModelPath() (string, error) {
	if diskPath, err := h.diskModelPath(); err == nil {
		return diskPath, nil
	}

	if !hasEmbeddedModel {
		return "", fmt.Errorf("no model found in %s and no embedded model compiled in (build with -tags embed_model)", h.cacheDir)
	}

	if err := os.MkdirAll(h.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	return extractEmbeddedModel(embeddedModelFS, h.cacheDir)
}

// diskModelPath looks for a model subdirectory containing tokenizer.json
// inside cacheDir.
func (h *HugotProvider) diskModelPath() (string, error) {
	entries, err := os.ReadDir(h.cacheDir)
	if err != nil {
		return "", fmt.Errorf("read model directory %s: %w", h.cacheDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(h.cacheDir, entry.Name())
		if _, statErr := os.Stat(filepath.Join(candidate, "tokenizer.json")); statErr == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no model subdirectory with tokenizer.json found in %s", h.cacheDir)
}

// extractEmbeddedModel writes the statically embedded model files to targetDir
// and returns the path to the model subdirectory.
func extractEmbeddedModel(embedded fs.FS, targetDir string) (string, error) {
	modelsFS, err := fs.Sub(embedded, "models")
	if err != nil {
		return "", fmt.Errorf("access embedded models: %w", err)
	}

	entries, err := fs.ReadDir(modelsFS, ".")
	if err != nil {
		return "", fmt.Errorf("read embedded models: %w", err)
	}

	var modelSubdir string
	for _, entry := range entries {
		if entry.IsDir() {
			modelSubdir = entry.Name()
			break
		}
	}
	if modelSubdir == "" {
		return "", errors.New("no model directory found in embedded models")
	}

	modelPath := filepath.Join(targetDir, modelSubdir)

	// Skip extraction if already present.
	if _, statErr := os.Stat(filepath.Join(modelPath, "tokenizer.json")); statErr == nil {
		return modelPath, nil
	}

	modelFS, err := fs.Sub(modelsFS, modelSubdir)
	if err != nil {
		return "", fmt.Errorf("access model subdirectory: %w", err)
	}

	err = fs.WalkDir(modelFS, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		target := filepath.Join(modelPath, path)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, readErr := fs.ReadFile(modelFS, path)
		if readErr != nil {
			return fmt.Errorf("read embedded file %s: %w", path, readErr)
		}
		if mkdirErr := os.MkdirAll(filepath.Dir(target), 0o755); mkdirErr != nil {
			return fmt.Errorf("create directory for %s: %w", path, mkdirErr)
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("extract embedded model: %w", err)
	}

	return modelPath, nil
}

// EmbedText embeds one piece of free text.
func (h *HugotProvider) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if isBlank(text) {
		return nil, search.ErrEmptyInput
	}
	if err := h.Initialize(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Hold the singleton mutex for inference — ORT is not thread-safe.
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	result, err := ortSingleton.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}
	if len(result.Embeddings) != 1 {
		return nil, fmt.Errorf("embedding pipeline returned %d vectors for 1 text", len(result.Embeddings))
	}

	vec32 := result.Embeddings[0]
	if len(vec32) != search.EmbeddingDim {
		return nil, fmt.Errorf("model produced %d-dimensional vector, want %d", len(vec32), search.EmbeddingDim)
	}

	vec := make([]float64, len(vec32))
	for i, v := range vec32 {
		vec[i] = float64(v)
	}
	return vec, nil
}

// EmbedTrackMetadata embeds a track's metadata fields.
func (h *HugotProvider) EmbedTrackMetadata(ctx context.Context, meta track.Metadata) ([]float64, error) {
	return embedMetadata(ctx, h, meta)
}

// Dimension returns the model's output width.
func (h *HugotProvider) Dimension() int { return search.EmbeddingDim }

// Close is a no-op. The ONNX Runtime session is process-global and shared
// across all HugotProvider instances; it is cleaned up when the process exits.
func (h *HugotProvider) Close() error { return nil }
