package llm

import (
	"math/rand/v2"
	"time"
)

// RetryConfig controls how the client retries transient request failures.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per endpoint.
	MaxAttempts int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns sensible retry defaults for LLM requests.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// Backoff returns the wait before the next try once attempt attempts have
// failed, exponential in BackoffMultiplier with a 25% jitter band and
// capped at MaxBackoff.
func (cfg RetryConfig) Backoff(attempt int) time.Duration {
	d := float64(cfg.BackoffBase)
	for i := 1; i < attempt; i++ {
		d *= cfg.BackoffMultiplier
	}
	backoff := time.Duration(d)
	if backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}
	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}
