package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/domain/track"
)

// errEmptyEmbeddingResponse indicates the API returned HTTP 200 with no
// embedding data. Transient upstream issues (rate limiting behind a 200
// status) can produce this, so it is retryable.
var errEmptyEmbeddingResponse = errors.New("empty embedding response")

// OpenAIProvider generates embeddings through an OpenAI-compatible API. The
// request pins the output dimension so remote vectors line up with the local
// model's width, and responses are re-normalized because not every compatible
// server returns unit vectors.
type OpenAIProvider struct {
	client       *openai.Client
	model        string
	maxRetries   int
	initialDelay time.Duration
}

// OpenAIConfig holds configuration for the remote embedding provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewOpenAIProvider creates a provider from configuration.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        model,
		maxRetries:   maxRetries,
		initialDelay: 2 * time.Second,
	}
}

// Initialize is a no-op: the remote service loads nothing locally.
func (p *OpenAIProvider) Initialize(context.Context) error { return nil }

// EmbedText embeds one piece of free text.
func (p *OpenAIProvider) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if isBlank(text) {
		return nil, search.ErrEmptyInput
	}

	req := openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(p.model),
		Input:      []string{text},
		Dimensions: search.EmbeddingDim,
	}

	var resp openai.EmbeddingResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateEmbeddings(ctx, req)
		if callErr != nil {
			return callErr
		}
		if len(resp.Data) != 1 {
			return fmt.Errorf("%w: got %d vectors for 1 text", errEmptyEmbeddingResponse, len(resp.Data))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remote embedding: %w", err)
	}

	raw := resp.Data[0].Embedding
	if len(raw) != search.EmbeddingDim {
		return nil, fmt.Errorf("remote model produced %d-dimensional vector, want %d", len(raw), search.EmbeddingDim)
	}

	vec := make([]float64, len(raw))
	for i, v := range raw {
		vec[i] = float64(v)
	}
	return normalize(vec), nil
}

// EmbedTrackMetadata embeds a track's metadata fields.
func (p *OpenAIProvider) EmbedTrackMetadata(ctx context.Context, meta track.Metadata) ([]float64, error) {
	return embedMetadata(ctx, p, meta)
}

// Dimension returns the pinned output width.
func (p *OpenAIProvider) Dimension() int { return search.EmbeddingDim }

// Close is a no-op for the remote provider.
func (p *OpenAIProvider) Close() error { return nil }

// withRetry executes fn with exponential backoff.
func (p *OpenAIProvider) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable determines if an error should be retried.
func isRetryable(err error) bool {
	if errors.Is(err, errEmptyEmbeddingResponse) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}
