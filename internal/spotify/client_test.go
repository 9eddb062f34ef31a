package spotify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// fakeTokens is a TokenProvider returning a fixed token.
type fakeTokens struct {
	mu            sync.Mutex
	token         string
	ensures       int
	invalidations int
}

func (f *fakeTokens) Ensure(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensures++
	return f.token, nil
}

func (f *fakeTokens) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations++
	f.token = "refreshed-token"
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *fakeTokens) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := &fakeTokens{token: "test-token"}
	base := []Option{
		WithBaseURL(server.URL),
		WithLogger(log.New(io.Discard)),
		WithRequestsPerSecond(0),
	}
	return New(tokens, append(base, opts...)...), tokens
}

func TestCurrentUserID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("path = %q, want /me", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(`{"id":"user-1","display_name":"Test"}`))
	}))

	id, err := client.CurrentUserID(context.Background())
	if err != nil {
		t.Fatalf("CurrentUserID() error = %v", err)
	}
	if id != "user-1" {
		t.Errorf("CurrentUserID() = %q, want user-1", id)
	}
}

func TestUnauthorizedTriggersSingleRefresh(t *testing.T) {
	var calls int
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") == "Bearer refreshed-token" {
			_, _ = w.Write([]byte(`{"id":"user-1"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
	}))

	id, err := client.CurrentUserID(context.Background())
	if err != nil {
		t.Fatalf("CurrentUserID() error = %v", err)
	}
	if id != "user-1" {
		t.Errorf("CurrentUserID() = %q, want user-1", id)
	}
	if tokens.invalidations != 1 {
		t.Errorf("invalidations = %d, want 1", tokens.invalidations)
	}
	if calls != 2 {
		t.Errorf("API calls = %d, want 2", calls)
	}
}

func TestRepeatedUnauthorizedSurfacesError(t *testing.T) {
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"status":401,"message":"Invalid access token"}}`))
	}))

	_, err := client.CurrentUserID(context.Background())
	if err == nil {
		t.Fatal("CurrentUserID() error = nil, want 401 API error")
	}
	if tokens.invalidations != 1 {
		t.Errorf("invalidations = %d, want 1 (no refresh loop)", tokens.invalidations)
	}
}

func TestUnauthorizedOnFinalAttemptSurfacesError(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"status":401,"message":"Invalid access token"}}`))
	}), WithRetryPolicy(RetryPolicy{MaxAttempts: 1, Backoff: time.Millisecond}))

	_, err := client.CurrentUserID(context.Background())
	if err == nil {
		t.Fatal("CurrentUserID() error = nil, want 401 API error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Errorf("error = %v, want 401 APIError", err)
	}
	if calls != 1 {
		t.Errorf("API calls = %d, want 1", calls)
	}
}

func TestRetryPolicyPerformsAtLeastOneAttempt(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"id":"user-1"}`))
	}), WithRetryPolicy(RetryPolicy{MaxAttempts: 0}))

	id, err := client.CurrentUserID(context.Background())
	if err != nil {
		t.Fatalf("CurrentUserID() error = %v", err)
	}
	if id != "user-1" {
		t.Errorf("CurrentUserID() = %q, want user-1", id)
	}
	if calls != 1 {
		t.Errorf("API calls = %d, want 1", calls)
	}
}
