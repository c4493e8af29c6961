// Package retry provides a small injectable retry policy for transient
// external-service failures. A single Policy value is configured once and
// passed into every collaborator client, replacing per-call-site backoff
// constants.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Permanent wraps an error that must not be retried.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// NoRetry marks err as permanent so Do returns it immediately.
func NoRetry(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{Err: err}
}

// Policy controls bounded exponential backoff. The zero value performs a
// single attempt with no delay.
type Policy struct {
	MaxAttempts int           `toml:"max_attempts"`
	BaseDelay   time.Duration `toml:"base_delay"`
	MaxDelay    time.Duration `toml:"max_delay"`
	Jitter      float64       `toml:"jitter"`
}

// DefaultPolicy returns the standard policy for collaborator calls: three
// attempts with exponential backoff from 250ms, capped at 5s, ±20% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      0.2,
	}
}

// Do invokes fn until it succeeds, returns a permanent error, the attempt
// budget is exhausted, or ctx is done. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.delay(attempt)):
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		if ctx.Err() != nil {
			return err
		}
	}

	return err
}

func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d = time.Duration(float64(d) - spread/2 + rand.Float64()*spread)
	}
	if d < 0 {
		d = 0
	}
	return d
}
