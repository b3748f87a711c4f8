package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
)

// Config holds retry configuration. MaxRetries is the number of attempts made
// after the first one; zero means the operation runs exactly once.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultConfig returns a single-attempt configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 0,
		BaseDelay:  1 * time.Second,
	}
}

// WithBackoff runs operation, retrying retryable failures with exponential
// backoff and jitter until MaxRetries is exhausted or ctx is done.
func WithBackoff(ctx context.Context, config Config, operation func(context.Context) error) error {
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}

		if config.MaxRetries == 0 {
			return err
		}

		if !isRetryableError(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		if attempt == config.MaxRetries {
			return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries+1, err)
		}

		// Exponential backoff with jitter
		baseDelay := config.BaseDelay * time.Duration(1<<attempt)
		var jitter time.Duration
		if config.BaseDelay > 0 {
			jitter = time.Duration(rand.Int64N(int64(config.BaseDelay)))
		}
		delay := baseDelay + jitter

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil
}

// isRetryableError reports whether err is worth another attempt: transport
// failures, 429 and 5xx responses.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return HTTPStatusRetryable(apiErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "network") {
		return true
	}

	// Only 5xx server errors and 429 rate limiting should be retried
	if strings.Contains(errStr, "status 5") ||
		strings.Contains(errStr, "status 429") {
		return true
	}

	// Malformed payloads and other client errors will not fix themselves.
	return false
}

// HTTPStatusRetryable reports whether a response with statusCode is worth retrying.
func HTTPStatusRetryable(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
