// Package utils provides small helpers shared across SiteProbe packages.
package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig defines the configuration for retry logic using backoff/v4
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultRetryConfig returns a standard retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// NewExponentialBackOff creates a backoff.ExponentialBackOff from RetryConfig
func (rc RetryConfig) NewExponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.InitialDelay
	b.MaxInterval = rc.MaxDelay
	if rc.Multiplier > 0 {
		b.Multiplier = rc.Multiplier
	}
	if !rc.Jitter {
		b.RandomizationFactor = 0
	}
	// Attempts are bounded by MaxRetries and the context instead.
	b.MaxElapsedTime = 0
	return b
}

// ExecuteWithRetry runs operation until it succeeds, returns a
// backoff.Permanent error, MaxRetries retries have been spent or ctx is done.
// notify may be nil.
func ExecuteWithRetry(ctx context.Context, operation func() error, config RetryConfig, notify func(err error, next time.Duration)) error {
	var b backoff.BackOff = config.NewExponentialBackOff()
	if config.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(config.MaxRetries))
	}
	b = backoff.WithContext(b, ctx)

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return fmt.Errorf("operation failed after retries: %w", err)
	}
	return nil
}

// Permanent marks err so ExecuteWithRetry stops immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
