// Package transport holds the retry policy applied at the caller boundary. The
// signing pipeline itself never retries; a caller that wants another attempt
// rebuilds and re-signs the whole transaction inside fn.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"go.uber.org/zap"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      5 * time.Second,
	BackoffMultiple: 2.0,
}

// NoRetry runs fn exactly once
var NoRetry = RetryConfig{MaxAttempts: 1}

// Backoff returns the delay before attempt+1, for attempt starting at 0
func (rc RetryConfig) Backoff(attempt int) time.Duration {
	backoff := rc.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * rc.BackoffMultiple)
		if rc.MaxBackoff > 0 && backoff > rc.MaxBackoff {
			return rc.MaxBackoff
		}
	}
	return backoff
}

// Retry calls fn until it succeeds, returns an error that is not retryable
// (see uploadErrors.IsRetryable), the attempts run out, or ctx is done.
// The last error from fn is returned.
func Retry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, fn func(ctx context.Context, attempt int) error) error {
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("retry config: max attempts must be at least 1, got %d", cfg.MaxAttempts)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return uploadErrors.Transient(err, "context done before attempt %d", attempt+1)
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !uploadErrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := cfg.Backoff(attempt)
		logger.Sugar().Warnw("Retryable failure, backing off",
			"attempt", attempt+1,
			"max_attempts", cfg.MaxAttempts,
			"backoff", backoff,
			"kind", uploadErrors.KindOf(lastErr),
			"error", lastErr,
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}
