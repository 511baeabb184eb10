package retry

import (
	"context"
	"math/rand"
	"time"
)

// IsRetryableFunc is a function that determines if an error is retryable
type IsRetryableFunc func(error) bool

// Options configures the retry behavior
type Options struct {
	// MaxRetries is the maximum number of retry attempts (not including the initial attempt)
	MaxRetries int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// BackoffFactor is the factor by which the delay increases after each retry
	BackoffFactor float64

	// JitterFactor adds randomness to the delay (0.0 = no jitter, 1.0 = 100% jitter)
	JitterFactor float64

	// IsRetryable decides whether a failed attempt is tried again.
	// When nil no error is retried.
	IsRetryable IsRetryableFunc

	// OnRetry is called before sleeping ahead of each retry
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultOptions returns default retry options
func DefaultOptions() Options {
	return Options{
		MaxRetries:    2,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, the retries
// are used up, or ctx is done.
func Do(ctx context.Context, fn func(context.Context) error, opts Options) error {
	var delay time.Duration
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if attempt >= opts.MaxRetries || opts.IsRetryable == nil || !opts.IsRetryable(err) {
			return err
		}

		delay = nextDelay(delay, attempt, opts)
		if opts.JitterFactor > 0 {
			jitter := float64(delay) * opts.JitterFactor
			delay = time.Duration(float64(delay) + (rnd.Float64()*jitter*2 - jitter))
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// nextDelay applies exponential backoff capped at MaxDelay
func nextDelay(prev time.Duration, attempt int, opts Options) time.Duration {
	if attempt == 0 {
		return opts.InitialDelay
	}

	delay := time.Duration(float64(prev) * opts.BackoffFactor)
	if opts.MaxDelay > 0 && delay > opts.MaxDelay {
		delay = opts.MaxDelay
	}
	return delay
}
