package retry

import (
	"time"

	"github.com/niels/page-server/pkg/config"
)

// FromConfig creates retry options from the storage retry configuration.
// Zero delays and factors keep the values from DefaultOptions.
func FromConfig(cfg config.RetryConfig, isRetryable IsRetryableFunc) Options {
	opts := DefaultOptions()
	opts.MaxRetries = cfg.MaxRetries
	opts.IsRetryable = isRetryable

	if cfg.InitialDelay > 0 {
		opts.InitialDelay = time.Duration(cfg.InitialDelay) * time.Millisecond
	}
	if cfg.MaxDelay > 0 {
		opts.MaxDelay = time.Duration(cfg.MaxDelay) * time.Millisecond
	}
	if cfg.BackoffFactor > 0 {
		opts.BackoffFactor = cfg.BackoffFactor
	}
	if cfg.JitterFactor > 0 {
		opts.JitterFactor = cfg.JitterFactor
	}

	return opts
}
