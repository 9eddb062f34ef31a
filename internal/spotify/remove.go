package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RemovalResult records the per-track outcome of one removal run.
type RemovalResult struct {
	Removed []string
	Failed  []string
	// Retries counts the passes that re-sent previously failed tracks.
	Retries int
}

// AllRemoved reports whether every requested track was removed.
func (r RemovalResult) AllRemoved() bool {
	return len(r.Failed) == 0
}

// PartialRemovalError reports tracks still failing after retries. The run
// otherwise completed; callers surface the failing ids rather than dropping
// them.
type PartialRemovalError struct {
	FailedIDs []string
}

func (e *PartialRemovalError) Error() string {
	return fmt.Sprintf("%d tracks could not be removed", len(e.FailedIDs))
}

// RemoveLiked deletes tracks from the saved-track library in batches of at
// most the configured size. Failed batches are re-sent (only the failed
// subset) up to the retry policy's attempt cap. Auth, rate-limit, and
// transient failures abort the run since they would fail every remaining
// batch the same way; only provider-side batch rejections go through the
// subset retry path.
//
// Progress may be nil.
func (c *Client) RemoveLiked(ctx context.Context, ids []string, progress func(done, total int)) (RemovalResult, error) {
	result := RemovalResult{}
	total := len(ids)
	if total == 0 {
		return result, nil
	}

	pending := ids
	for attempt := 1; attempt <= c.retry.MaxAttempts && len(pending) > 0; attempt++ {
		if attempt > 1 {
			result.Retries++
			c.logger.Info("retrying failed removals", "count", len(pending), "attempt", attempt)
		}

		var failed []string
		for start := 0; start < len(pending); start += c.deleteBatchSize {
			end := min(start+c.deleteBatchSize, len(pending))
			batch := pending[start:end]

			err := c.deleteBatch(ctx, batch)
			switch {
			case err == nil:
				result.Removed = append(result.Removed, batch...)
				if progress != nil {
					progress(len(result.Removed), total)
				}
			case isBatchFailure(err):
				c.logger.Warn("removal batch failed", "size", len(batch), "err", err)
				failed = append(failed, batch...)
			default:
				// Unrecoverable for the whole run: everything not yet
				// removed is reported as failed.
				result.Failed = append(failed, pending[start:]...)
				return result, err
			}
		}
		pending = failed
	}

	result.Failed = pending
	if len(pending) > 0 {
		return result, &PartialRemovalError{FailedIDs: pending}
	}
	return result, nil
}

// deleteBatch issues one DELETE /me/tracks call. The provider answers a
// successful delete with HTTP 200 and an empty body (sometimes 204); the
// empty body is a documented success, not a malformed response, so no body
// parsing happens here.
func (c *Client) deleteBatch(ctx context.Context, ids []string) error {
	query := url.Values{"ids": {strings.Join(ids, ",")}}
	_, err := c.doRequest(ctx, http.MethodDelete, "/me/tracks", query)
	return err
}

// isBatchFailure reports whether err affects only the attempted batch.
// Rate-limit and transient errors have already exhausted the shared retry
// policy and would recur on every batch, so they are not batch-scoped.
func isBatchFailure(err error) bool {
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient) {
		return false
	}
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
