// Package spotify implements the subset of the Spotify Web API the cleaner
// needs: saved-track pagination, listening-history signals, and batched
// removal from the saved-track library.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://api.spotify.com/v1"
	defaultPageSize  = 50
	defaultBatchSize = 50
	userAgent        = "spotify-liked-cleaner/1.0"
)

// TokenProvider supplies a valid access token before each request and is
// told when the provider rejects one.
type TokenProvider interface {
	Ensure(ctx context.Context) (string, error)
	Invalidate()
}

// Client is a Spotify Web API client scoped to one authenticated session.
type Client struct {
	http            *http.Client
	baseURL         string
	tokens          TokenProvider
	retry           RetryPolicy
	limiter         *rate.Limiter
	logger          *log.Logger
	pageSize        int
	deleteBatchSize int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client. The client's timeout bounds
// every remote call.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetryPolicy sets the shared retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		if p.MaxAttempts < 1 {
			p.MaxAttempts = 1
		}
		c.retry = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPageSize sets the saved-tracks page size (provider max 50).
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithDeleteBatchSize sets the removal batch size (provider max 50).
func WithDeleteBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.deleteBatchSize = n
		}
	}
}

// WithRequestsPerSecond paces outgoing requests. Zero disables pacing.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// New creates a Client using the given token provider.
func New(tokens TokenProvider, opts ...Option) *Client {
	c := &Client{
		http:            &http.Client{Timeout: 30 * time.Second},
		baseURL:         defaultBaseURL,
		tokens:          tokens,
		retry:           DefaultRetryPolicy(),
		limiter:         rate.NewLimiter(rate.Limit(10), 1),
		logger:          log.Default(),
		pageSize:        defaultPageSize,
		deleteBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs one API call with the shared retry policy: 429 waits for
// the Retry-After hint, timeouts and 5xx back off exponentially, and a 401
// invalidates the access token so the next attempt runs with a fresh one.
// Returns the response body; a 200 with an empty body is a valid success.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var lastErr error
	refreshed := false

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		token, err := c.tokens.Ensure(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", ErrTransient, err)
			c.logger.Warn("request failed", "method", method, "path", path, "attempt", attempt, "err", err)
			if err := sleep(ctx, c.retry.delay(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: reading response: %v", ErrTransient, readErr)
			if err := sleep(ctx, c.retry.delay(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
			return body, nil

		case resp.StatusCode == http.StatusUnauthorized:
			if refreshed {
				return nil, apiError(resp.StatusCode, body)
			}
			refreshed = true
			// Surfaces the 401 if this was the last attempt.
			lastErr = apiError(resp.StatusCode, body)
			c.tokens.Invalidate()
			// Immediate retry with a fresh token.

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header)
			lastErr = ErrRateLimited
			c.logger.Warn("rate limited", "path", path, "retry_after", wait, "attempt", attempt)
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
			if err := sleep(ctx, c.retry.delay(attempt)); err != nil {
				return nil, err
			}

		default:
			return nil, apiError(resp.StatusCode, body)
		}
	}

	return nil, lastErr
}

// retryAfter parses the Retry-After header, defaulting to one second.
func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

func apiError(status int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return &APIError{Status: status, Message: er.Error.Message}
	}
	return &APIError{Status: status, Message: http.StatusText(status)}
}

// CurrentUserID returns the authenticated user's Spotify ID.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/me", nil)
	if err != nil {
		return "", fmt.Errorf("fetching current user: %w", err)
	}
	var user struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("parsing current user: %w", err)
	}
	return user.ID, nil
}
