package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/stillharbor/anchorage/internal/config"
	"github.com/stillharbor/anchorage/pkg/retry"
)

const requestTimeout = 30 * time.Second

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Client is an Embedder backed by an Ollama-compatible /api/embeddings
// endpoint. Calls are rate-limited and retried with the injected policy;
// a non-2xx response or a dimension mismatch is permanent and not retried.
type Client struct {
	http      *http.Client
	baseURL   string
	model     string
	dimension int
	limiter   *rate.Limiter
	retry     retry.Policy
	logger    *slog.Logger
}

// NewClient creates an embedding client from the finalized configuration.
func NewClient(cfg *config.EmbeddingConfig, policy retry.Policy, logger *slog.Logger) *Client {
	return &Client{
		http:      &http.Client{Timeout: requestTimeout},
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		retry:     policy,
		logger:    logger.With("system", "embedding"),
	}
}

func (c *Client) Dimension() int {
	return c.dimension
}

// Embed generates a vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var vec []float32
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.NoRetry(err)
		}

		var err error
		vec, err = c.embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}

	return vec, nil
}

// EmbedBatch embeds each text sequentially; the endpoint has no batch API
// and the rate limiter paces the calls.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch item %d: %w", i, err)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, retry.NoRetry(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/embeddings",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, retry.NoRetry(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("embedding endpoint returned %d: %s", resp.StatusCode, data)
		if resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, retry.NoRetry(err)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	if len(parsed.Embedding) != c.dimension {
		return nil, retry.NoRetry(fmt.Errorf(
			"%w: got %d, configured %d",
			ErrDimensionDrift, len(parsed.Embedding), c.dimension,
		))
	}

	vec := make([]float32, len(parsed.Embedding))
	for i, v := range parsed.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
