package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"

	errUtils "github.com/cloudposse/runtime-init/errors"
	"github.com/cloudposse/runtime-init/pkg/schema"
)

// Func represents a function that can be retried.
type Func func() error

// Executor handles the retry logic.
type Executor struct {
	config schema.RetryConfig
	rand   *rand.Rand
}

// New creates a new retry executor with the given config.
// Zero values fall back to a single attempt and a multiplier of 2.
func New(config schema.RetryConfig) *Executor {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.Multiplier <= 0 {
		config.Multiplier = defaultMultiplier
	}
	return &Executor{
		config: config,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute runs fn until it succeeds or the attempts are exhausted.
func (e *Executor) Execute(ctx context.Context, fn Func) error {
	return e.ExecuteWithPredicate(ctx, fn, RetryOnAnyError)
}

// ExecuteWithPredicate retries fn only while shouldRetry accepts the error.
// When attempts run out the last error is returned as is, so callers see the
// root cause text unchanged.
func (e *Executor) ExecuteWithPredicate(ctx context.Context, fn Func, shouldRetry func(error) bool) error {
	startTime := time.Now()

	var lastErr error
	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		if e.config.MaxElapsedTime > 0 && time.Since(startTime) > e.config.MaxElapsedTime {
			if lastErr != nil {
				return lastErr
			}
			return errors.Wrapf(errUtils.ErrMaxElapsedTime, "after %v", e.config.MaxElapsedTime)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !shouldRetry(lastErr) || attempt == e.config.MaxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(e.calculateDelay(attempt)):
		}
	}
	return lastErr
}

const (
	jitterFlipChance  = 0.5
	jitterFraction    = 0.1
	defaultMultiplier = 2.0
)

// calculateDelay calculates the delay before the next attempt.
func (e *Executor) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch e.config.BackoffStrategy {
	case schema.BackoffLinear:
		delay = time.Duration(float64(e.config.InitialDelay) * float64(attempt))
	case schema.BackoffExponential:
		delay = time.Duration(float64(e.config.InitialDelay) * math.Pow(e.config.Multiplier, float64(attempt-1)))
	default:
		delay = e.config.InitialDelay
	}

	if e.config.MaxDelay > 0 && delay > e.config.MaxDelay {
		delay = e.config.MaxDelay
	}

	if e.config.RandomJitter {
		jitter := time.Duration(e.rand.Float64() * float64(delay) * jitterFraction)
		if e.rand.Float64() < jitterFlipChance {
			delay += jitter
		} else {
			delay -= jitter
		}

		if delay < 0 {
			delay = 0
		}
	}

	return delay
}

// Do creates an executor for config and runs fn. A nil config runs fn once.
func Do(ctx context.Context, config *schema.RetryConfig, fn Func) error {
	if config == nil {
		return fn()
	}
	return New(*config).Execute(ctx, fn)
}

// WithPredicate is Do with a predicate selecting which errors are retried.
func WithPredicate(ctx context.Context, config *schema.RetryConfig, fn Func, shouldRetry func(error) bool) error {
	if config == nil {
		return fn()
	}
	return New(*config).ExecuteWithPredicate(ctx, fn, shouldRetry)
}

const (
	defaultAttempts       = 3
	defaultInitialDelay   = 200 * time.Millisecond
	defaultMaxDelay       = 2 * time.Second
	defaultMaxElapsedTime = 30 * time.Second
)

// DefaultConfig returns the retry policy used for instance metadata reads.
func DefaultConfig() schema.RetryConfig {
	return schema.RetryConfig{
		MaxAttempts:     defaultAttempts,
		BackoffStrategy: schema.BackoffExponential,
		InitialDelay:    defaultInitialDelay,
		MaxDelay:        defaultMaxDelay,
		RandomJitter:    true,
		Multiplier:      defaultMultiplier,
		MaxElapsedTime:  defaultMaxElapsedTime,
	}
}

var (
	// RetryOnAnyError retries on any error.
	RetryOnAnyError = func(err error) bool { return true }

	// RetryUnlessNotFound retries transient failures but stops on a 404 from a
	// metadata endpoint, which will not change on retry.
	RetryUnlessNotFound = func(err error) bool { return !errors.Is(err, errUtils.ErrHTTPNotFound) }
)
