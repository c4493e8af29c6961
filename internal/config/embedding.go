package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvEmbeddingBaseURL   = "ANCHORAGE_EMBEDDING_BASE_URL"
	EnvEmbeddingModel     = "ANCHORAGE_EMBEDDING_MODEL"
	EnvEmbeddingDimension = "ANCHORAGE_EMBEDDING_DIMENSION"
)

// EmbeddingConfig configures the embedding collaborator. Dimension is shared
// by every stored segment vector; changing it invalidates persisted
// embeddings, which is why it lives in configuration rather than being
// inferred from the first response.
type EmbeddingConfig struct {
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Dimension   int     `toml:"dimension"`
	CacheSize   int     `toml:"cache_size"`
	RatePerSec  float64 `toml:"rate_per_sec"`
	RateBurst   int     `toml:"rate_burst"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *EmbeddingConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *EmbeddingConfig) Merge(overlay *EmbeddingConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Dimension != 0 {
		c.Dimension = overlay.Dimension
	}
	if overlay.CacheSize != 0 {
		c.CacheSize = overlay.CacheSize
	}
	if overlay.RatePerSec != 0 {
		c.RatePerSec = overlay.RatePerSec
	}
	if overlay.RateBurst != 0 {
		c.RateBurst = overlay.RateBurst
	}
}

func (c *EmbeddingConfig) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "nomic-embed-text"
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
	if c.CacheSize == 0 {
		c.CacheSize = 2048
	}
	if c.RatePerSec == 0 {
		c.RatePerSec = 20
	}
	if c.RateBurst == 0 {
		c.RateBurst = 5
	}
}

func (c *EmbeddingConfig) loadEnv() {
	if v := os.Getenv(EnvEmbeddingBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvEmbeddingDimension); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Dimension = n
		}
	}
}

func (c *EmbeddingConfig) validate() error {
	if c.Dimension < 1 {
		return fmt.Errorf("invalid dimension: %d", c.Dimension)
	}
	if c.RatePerSec < 0 {
		return fmt.Errorf("invalid rate_per_sec: %f", c.RatePerSec)
	}
	return nil
}
