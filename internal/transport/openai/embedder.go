package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/recallhq/recall/internal/domain"
	"github.com/recallhq/recall/internal/metrics"
)

// Default retry policy values.
const (
	DefaultMaxRetries = 2
	DefaultBatchSize  = 10
)

// Embedder is an embedding provider using the OpenAI-compatible API.
// Rate-limit responses are retried with exponential backoff (1, 2, 4 ...
// backoff units); other API errors get one fixed unit of backoff per retry,
// sharing the same attempt budget. Unexpected errors abort immediately.
type Embedder struct {
	client      *openai.Client
	model       openai.EmbeddingModel
	dimensions  int
	provider    string
	maxRetries  int
	batchSize   int
	backoffUnit time.Duration
	logger      *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Dimensions  int
	Provider    string
	MaxRetries  int           // additional attempts after the first; default 2
	BatchSize   int           // max inputs per provider call; default 10
	BackoffUnit time.Duration // backoff time unit; default 1s
	Logger      *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	backoffUnit := cfg.BackoffUnit
	if backoffUnit <= 0 {
		backoffUnit = time.Second
	}

	return &Embedder{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       openai.EmbeddingModel(cfg.Model),
		dimensions:  cfg.Dimensions,
		provider:    cfg.Provider,
		maxRetries:  maxRetries,
		batchSize:   batchSize,
		backoffUnit: backoffUnit,
		logger:      cfg.Logger,
	}
}

// Embed implements domain.Embedder. Empty or whitespace-only input fails
// immediately without a network call; input is trimmed before sending.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("empty input: %w", domain.ErrValidationFailed)
	}

	vectors, usage, err := e.embedWithRetry(ctx, []string{cleaned})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if len(vectors) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingUnavailable)
	}

	return domain.EmbeddingResult{
		Embedding:    vectors[0],
		PromptTokens: usage.PromptTokens,
		TotalTokens:  usage.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder. Inputs are partitioned into
// chunks of at most batchSize; a chunk that exhausts its retries contributes
// nil placeholders for exactly its inputs while the other chunks still
// produce vectors. Output order matches input order.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	result := domain.BatchEmbeddingResult{
		Embeddings: make([][]float32, len(texts)),
	}
	if len(texts) == 0 {
		return result, nil
	}

	for offset := 0; offset < len(texts); offset += e.batchSize {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("batch embed canceled: %w", err)
		}

		end := min(offset+e.batchSize, len(texts))
		chunk := make([]string, end-offset)
		for i, t := range texts[offset:end] {
			chunk[i] = strings.TrimSpace(t)
		}

		vectors, usage, err := e.embedWithRetry(ctx, chunk)
		if err != nil {
			e.logger.Warn("Batch chunk failed after retries",
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			result.Failed += len(chunk)
			continue
		}

		for i := range vectors {
			if offset+i < len(result.Embeddings) {
				result.Embeddings[offset+i] = vectors[i]
			}
		}
		result.PromptTokens += usage.PromptTokens
		result.TotalTokens += usage.TotalTokens
	}

	return result, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// embedWithRetry performs the provider call with the retry policy applied.
func (e *Embedder) embedWithRetry(ctx context.Context, inputs []string) ([][]float32, openai.Usage, error) {
	req := openai.EmbeddingRequest{
		Input:          inputs,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		start := time.Now()
		resp, err := e.client.CreateEmbeddings(ctx, req)
		duration := time.Since(start)

		if err == nil {
			metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
			metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())
			if resp.Usage.TotalTokens > 0 {
				metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").
					Add(float64(resp.Usage.PromptTokens))
				metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "total").
					Add(float64(resp.Usage.TotalTokens))
			}
			return orderedVectors(resp, len(inputs)), resp.Usage, nil
		}

		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()

		classified := classifyError(err)
		lastErr = classified

		switch {
		case errors.Is(classified, domain.ErrEmbeddingRateLimited):
			metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "rate_limited").Inc()
			if attempt < e.maxRetries {
				metrics.EmbeddingRetriesTotal.WithLabelValues(e.provider, string(e.model), "rate_limited").Inc()
				e.logger.Warn("Embedding rate limited, backing off",
					zap.Int("attempt", attempt+1),
					zap.Error(err),
				)
				// Exponential backoff: 1, 2, 4 ... units.
				if err := e.sleep(ctx, e.backoffUnit<<attempt); err != nil {
					return nil, openai.Usage{}, err
				}
				continue
			}

		case errors.Is(classified, domain.ErrEmbeddingUnavailable):
			metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "api_error").Inc()
			if attempt < e.maxRetries {
				metrics.EmbeddingRetriesTotal.WithLabelValues(e.provider, string(e.model), "api_error").Inc()
				e.logger.Warn("Embedding API error, retrying",
					zap.Int("attempt", attempt+1),
					zap.Error(err),
				)
				if err := e.sleep(ctx, e.backoffUnit); err != nil {
					return nil, openai.Usage{}, err
				}
				continue
			}

		default:
			// Unexpected error: abort without retrying.
			metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "unexpected").Inc()
			e.logger.Error("Unexpected embedding error", zap.Error(err))
			return nil, openai.Usage{}, classified
		}
	}

	e.logger.Error("Embedding retries exhausted",
		zap.Int("attempts", e.maxRetries+1),
		zap.Error(lastErr),
	)
	return nil, openai.Usage{}, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (e *Embedder) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// orderedVectors extracts embeddings in input order. The API documents
// index-aligned responses; sort defends against out-of-order data.
func orderedVectors(resp openai.EmbeddingResponse, n int) [][]float32 {
	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, 0, n)
	for _, d := range data {
		vectors = append(vectors, d.Embedding)
	}
	return vectors
}

// classifyError maps provider errors onto domain sentinels: 429 is
// retryable with exponential backoff, other API/transport errors are
// retryable once per attempt, anything else is unexpected.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("embedding API error %d: %s: %w",
				apiErr.HTTPStatusCode, apiErr.Message, domain.ErrEmbeddingRateLimited)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrEmbeddingUnavailable)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("embedding API error %d: %w",
				reqErr.HTTPStatusCode, domain.ErrEmbeddingRateLimited)
		}
		return fmt.Errorf("embedding API error %d: %w",
			reqErr.HTTPStatusCode, domain.ErrEmbeddingUnavailable)
	}

	return fmt.Errorf("embedding request failed: %w", err)
}
