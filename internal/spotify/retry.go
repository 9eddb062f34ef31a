package spotify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors surfaced once local retries are exhausted.
var (
	// ErrRateLimited is returned when 429 responses persist past the retry cap.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrTransient is returned for timeouts and connection failures that
	// persist past the retry cap.
	ErrTransient = errors.New("transient request failure")
)

// APIError is a non-retryable error response from the provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify api error %d: %s", e.Status, e.Message)
}

// RetryPolicy controls how remote calls are retried. One policy is shared by
// the library fetcher, signal fetcher, and remover.
type RetryPolicy struct {
	// MaxAttempts bounds the total tries per request, first attempt included.
	MaxAttempts int
	// Backoff is the delay before the first retry; it doubles per retry.
	// Retry-After hints from 429 responses take precedence when longer.
	Backoff time.Duration
}

// DefaultRetryPolicy matches the provider's published guidance: three
// attempts with exponential backoff from 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 500 * time.Millisecond}
}

// delay returns the backoff before retry number retries (1-based).
func (p RetryPolicy) delay(retries int) time.Duration {
	d := p.Backoff
	for i := 1; i < retries; i++ {
		d *= 2
	}
	return d
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
