package structurer

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const MaxRetries = 3

// RetryableError indicates a transient API failure.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// backoffBase is the first retry delay. Tests shrink it.
var backoffBase = time.Second

// Backoff returns the delay before retry n (0-indexed), doubled each time,
// capped at 30s, plus up to 50% jitter.
func Backoff(attempt int) time.Duration {
	base := backoffBase << uint(attempt)
	if base > 30*time.Second || base <= 0 {
		base = 30 * time.Second
	}
	half := int64(base) / 2
	if half <= 0 {
		return base
	}
	return base + time.Duration(rand.Int64N(half))
}
