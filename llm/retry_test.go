package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        4 * time.Second,
	}

	// Jitter is at most 25% of the pre-jitter value in either direction.
	within := func(t *testing.T, got, center time.Duration) {
		t.Helper()
		band := time.Duration(float64(center) * 0.25)
		assert.GreaterOrEqual(t, got, center-band)
		assert.LessOrEqual(t, got, center+band)
	}

	within(t, cfg.Backoff(1), time.Second)
	within(t, cfg.Backoff(2), 2*time.Second)
	within(t, cfg.Backoff(3), 4*time.Second)

	// Growth stops at MaxBackoff.
	within(t, cfg.Backoff(10), 4*time.Second)
}
