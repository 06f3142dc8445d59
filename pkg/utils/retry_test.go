package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecuteWithRetry(t *testing.T) {
	config := RetryConfig{
		MaxRetries:   2,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}

	t.Run("success first try", func(t *testing.T) {
		calls := 0
		err := ExecuteWithRetry(context.Background(), func() error {
			calls++
			return nil
		}, config, nil)

		if err != nil {
			t.Errorf("Expected nil error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("Expected 1 call, got %d", calls)
		}
	})

	t.Run("success after retries", func(t *testing.T) {
		calls := 0
		notified := 0
		err := ExecuteWithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("temporary error")
			}
			return nil
		}, config, func(error, time.Duration) { notified++ })

		if err != nil {
			t.Errorf("Expected nil error, got %v", err)
		}
		if calls != 3 {
			t.Errorf("Expected 3 calls, got %d", calls)
		}
		if notified != 2 {
			t.Errorf("Expected 2 notifications, got %d", notified)
		}
	})

	t.Run("fail after max retries", func(t *testing.T) {
		calls := 0
		err := ExecuteWithRetry(context.Background(), func() error {
			calls++
			return errors.New("persistent error")
		}, config, nil)

		if err == nil {
			t.Error("Expected error, got nil")
		}
		// Initial try + 2 retries = 3 calls
		if calls != 3 {
			t.Errorf("Expected 3 calls, got %d", calls)
		}
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		calls := 0
		sentinel := errors.New("bad executable path")
		err := ExecuteWithRetry(context.Background(), func() error {
			calls++
			return Permanent(sentinel)
		}, config, nil)

		if !errors.Is(err, sentinel) {
			t.Errorf("Expected wrapped sentinel, got %v", err)
		}
		if calls != 1 {
			t.Errorf("Expected 1 call, got %d", calls)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := ExecuteWithRetry(ctx, func() error {
			calls++
			return errors.New("never succeeds")
		}, config, nil)

		if err == nil {
			t.Error("Expected error for cancelled context")
		}
		if calls > 1 {
			t.Errorf("Expected at most 1 call, got %d", calls)
		}
	})
}
