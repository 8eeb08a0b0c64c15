package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// RetryIf limits retrying to matching errors; nil retries everything.
	RetryIf func(error) bool
}

// DefaultConfig returns default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// FixedConfig returns a configuration for hard-capped, zero-backoff retrying,
// as used by optimistic-concurrency loops that re-read state between
// attempts.
func FixedConfig(attempts uint, retryIf func(error) bool) Config {
	return Config{
		MaxAttempts: attempts,
		RetryIf:     retryIf,
	}
}

// Do executes a function with retry. Backoff is exponential when
// InitialDelay is set and immediate otherwise.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(cfg.MaxAttempts),
		retry.LastErrorOnly(true),
	}
	if cfg.InitialDelay > 0 {
		opts = append(opts,
			retry.Delay(cfg.InitialDelay),
			retry.MaxDelay(cfg.MaxDelay),
			retry.DelayType(retry.BackOffDelay),
		)
	} else {
		opts = append(opts,
			retry.Delay(0),
			retry.DelayType(retry.FixedDelay),
		)
	}
	if cfg.RetryIf != nil {
		opts = append(opts, retry.RetryIf(cfg.RetryIf))
	}
	return retry.Do(fn, opts...)
}

// DoWithResult executes a function with retry and returns a result
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}
