package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/stillharbor/anchorage/pkg/match"
	"github.com/stillharbor/anchorage/pkg/retry"
)

const (
	EnvRecoveryWorkers           = "ANCHORAGE_RECOVERY_WORKERS"
	EnvRecoveryAnnotationAccept  = "ANCHORAGE_RECOVERY_ANNOTATION_ACCEPT"
	EnvRecoveryAnnotationReview  = "ANCHORAGE_RECOVERY_ANNOTATION_REVIEW"
	EnvRecoveryConnectionAccept  = "ANCHORAGE_RECOVERY_CONNECTION_ACCEPT"
	EnvRecoveryConnectionReview  = "ANCHORAGE_RECOVERY_CONNECTION_REVIEW"
	EnvRecoveryRetryMaxAttempts  = "ANCHORAGE_RECOVERY_RETRY_MAX_ATTEMPTS"
	EnvRecoveryRetryBaseDelay    = "ANCHORAGE_RECOVERY_RETRY_BASE_DELAY"
)

// RecoveryConfig carries the classification thresholds and resource limits
// for re-anchoring runs. The threshold pairs are deliberately configuration
// rather than constants: annotations and connections use different schemes.
type RecoveryConfig struct {
	// Workers bounds per-item concurrency during batch recovery.
	Workers int `toml:"workers"`

	// AnnotationAccept and AnnotationReview partition annotation match
	// scores: >= accept resolves, >= review flags for review, below is lost.
	AnnotationAccept float64 `toml:"annotation_accept"`
	AnnotationReview float64 `toml:"annotation_review"`

	// ConnectionAccept and ConnectionReview do the same for the minimum
	// endpoint similarity of remapped connections.
	ConnectionAccept float64 `toml:"connection_accept"`
	ConnectionReview float64 `toml:"connection_review"`

	// Match holds the position-matcher thresholds and window sizes.
	Match match.Config `toml:"match"`

	// Retry is the shared policy for transient collaborator failures.
	Retry retry.Policy `toml:"retry"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *RecoveryConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *RecoveryConfig) Merge(overlay *RecoveryConfig) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.AnnotationAccept != 0 {
		c.AnnotationAccept = overlay.AnnotationAccept
	}
	if overlay.AnnotationReview != 0 {
		c.AnnotationReview = overlay.AnnotationReview
	}
	if overlay.ConnectionAccept != 0 {
		c.ConnectionAccept = overlay.ConnectionAccept
	}
	if overlay.ConnectionReview != 0 {
		c.ConnectionReview = overlay.ConnectionReview
	}
	if overlay.Match != (match.Config{}) {
		c.Match = overlay.Match
	}
	if overlay.Retry != (retry.Policy{}) {
		c.Retry = overlay.Retry
	}
}

func (c *RecoveryConfig) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.AnnotationAccept == 0 {
		c.AnnotationAccept = 0.85
	}
	if c.AnnotationReview == 0 {
		c.AnnotationReview = 0.75
	}
	if c.ConnectionAccept == 0 {
		c.ConnectionAccept = 0.95
	}
	if c.ConnectionReview == 0 {
		c.ConnectionReview = 0.85
	}
	if c.Match == (match.Config{}) {
		c.Match = match.DefaultConfig()
	}
	if c.Retry == (retry.Policy{}) {
		c.Retry = retry.DefaultPolicy()
	}
}

func (c *RecoveryConfig) loadEnv() {
	if v := os.Getenv(EnvRecoveryWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}

	loadFloat := func(envVar string, target *float64) {
		if v := os.Getenv(envVar); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*target = f
			}
		}
	}

	loadFloat(EnvRecoveryAnnotationAccept, &c.AnnotationAccept)
	loadFloat(EnvRecoveryAnnotationReview, &c.AnnotationReview)
	loadFloat(EnvRecoveryConnectionAccept, &c.ConnectionAccept)
	loadFloat(EnvRecoveryConnectionReview, &c.ConnectionReview)

	if v := os.Getenv(EnvRecoveryRetryMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvRecoveryRetryBaseDelay); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Retry.BaseDelay = d
		}
	}
}

func (c *RecoveryConfig) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive: %d", c.Workers)
	}
	if c.AnnotationReview > c.AnnotationAccept {
		return fmt.Errorf(
			"annotation review threshold %.2f exceeds accept threshold %.2f",
			c.AnnotationReview, c.AnnotationAccept,
		)
	}
	if c.ConnectionReview > c.ConnectionAccept {
		return fmt.Errorf(
			"connection review threshold %.2f exceeds accept threshold %.2f",
			c.ConnectionReview, c.ConnectionAccept,
		)
	}
	return nil
}
