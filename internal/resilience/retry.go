// Package resilience wraps outbound synthesis calls with retry and circuit
// breaking so transient transport failures do not abort a batch run.
package resilience

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/auralab/voicepipe/internal/audio"
	"github.com/auralab/voicepipe/internal/container"
	"github.com/auralab/voicepipe/internal/elevenlabs"
)

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxAttempts       int           // Maximum number of attempts, including the first
	InitialBackoff    time.Duration // Initial backoff duration
	MaxBackoff        time.Duration // Maximum backoff duration
	BackoffMultiplier float64       // Multiplier for exponential backoff
}

// DefaultRetryConfig returns a default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// Retry executes fn with exponential backoff. Errors classified as permanent
// by IsRetryableSynthesisError stop the loop immediately, as does ctx
// cancellation between attempts.
func Retry(ctx context.Context, fn RetryableFunc, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryableSynthesisError(err) {
			return err
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(CalculateBackoff(attempt, config.InitialBackoff, config.MaxBackoff, config.BackoffMultiplier)):
		}
	}

	return lastErr
}

// CalculateBackoff calculates the backoff duration for a given attempt.
func CalculateBackoff(attempt int, initialBackoff, maxBackoff time.Duration, multiplier float64) time.Duration {
	backoff := time.Duration(float64(initialBackoff) * math.Pow(multiplier, float64(attempt)))
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}

// IsRetryableSynthesisError classifies a synthesis failure. Input and protocol
// defects are deterministic and never retried; only transport-level failures
// can succeed on a second attempt.
func IsRetryableSynthesisError(err error) bool {
	if err == nil {
		return false
	}

	// Deterministic failures: the same request would fail the same way.
	if elevenlabs.IsValidationError(err) {
		return false
	}
	if errors.Is(err, elevenlabs.ErrProtocolViolation) ||
		errors.Is(err, elevenlabs.ErrCancelled) ||
		errors.Is(err, audio.ErrMalformedData) ||
		errors.Is(err, container.ErrEncodingFailure) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	return isNetworkError(err)
}

func isNetworkError(err error) bool {
	msg := err.Error()

	for _, s := range []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"network is unreachable",
		"no route to host",
		"deadline exceeded",
		"timeout",
		"i/o timeout",
		"unexpected EOF",
		"status 429",
		"status 500",
		"status 502",
		"status 503",
		"status 504",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
