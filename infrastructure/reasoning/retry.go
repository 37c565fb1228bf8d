package reasoning

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
)

// RetryingProvider wraps a Provider with bounded retries of transient
// failures. Parse failures are not retried here; re-prompting is owned by
// the pipeline steps.
type RetryingProvider struct {
	inner   Provider
	retrier retry.Retry[Response]
}

// RetryConfig configures the retrying wrapper.
type RetryConfig struct {
	// MaxAttempts bounds total attempts (default: 2).
	MaxAttempts int

	// InitialDelay is the first backoff delay (default: 500ms). It grows
	// exponentially per attempt.
	InitialDelay time.Duration
}

// WithRetry wraps the provider with a bounded-attempt retry policy.
func WithRetry(inner Provider, config RetryConfig) *RetryingProvider {
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	initialDelay := config.InitialDelay
	if initialDelay <= 0 {
		initialDelay = 500 * time.Millisecond
	}

	return &RetryingProvider{
		inner: inner,
		retrier: retry.New[Response](retry.Config{
			MaxAttempts:   maxAttempts,
			InitialDelay:  initialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
		}),
	}
}

// Name returns the wrapped provider's name.
func (p *RetryingProvider) Name() string {
	return p.inner.Name()
}

// Complete implements the Provider interface.
func (p *RetryingProvider) Complete(ctx context.Context, req Request) (Response, error) {
	return p.retrier.Do(ctx, func(ctx context.Context) (Response, error) {
		return p.inner.Complete(ctx, req)
	})
}
