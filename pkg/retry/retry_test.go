package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stillharbor/anchorage/pkg/retry"
)

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("still failing")
	calls := 0

	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("Do() error = %v, want %v", err, wantErr)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoPermanentErrorStopsImmediately(t *testing.T) {
	wantErr := errors.New("bad request")
	calls := 0

	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return retry.NoRetry(wantErr)
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("Do() error = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoZeroPolicySingleAttempt(t *testing.T) {
	calls := 0
	var p retry.Policy

	p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("nope")
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1 for zero policy", calls)
	}
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := fastPolicy().Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	if err == nil {
		t.Fatal("expected error after context cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries after cancel)", calls)
	}
}

func TestNoRetryNil(t *testing.T) {
	if err := retry.NoRetry(nil); err != nil {
		t.Errorf("NoRetry(nil) = %v, want nil", err)
	}
}
