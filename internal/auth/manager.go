// Package auth manages OAuth2 token pairs for authenticated Spotify sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrReauthRequired is returned when the refresh token itself is rejected
// and the user must go through the authorization flow again.
var ErrReauthRequired = errors.New("refresh token rejected, re-authentication required")

// Manager holds the access/refresh token pair for one authenticated session
// and refreshes the access token when it expires. Refresh is serialized by
// the internal mutex so overlapping requests from the same session never
// trigger concurrent exchanges.
type Manager struct {
	mu        sync.Mutex
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(*oauth2.Token)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithOnRefresh registers a callback invoked (under the manager lock) each
// time the token pair is rotated, so callers can persist the new pair.
func WithOnRefresh(fn func(*oauth2.Token)) ManagerOption {
	return func(m *Manager) {
		m.onRefresh = fn
	}
}

// NewManager creates a Manager for the given token pair.
func NewManager(config *oauth2.Config, token *oauth2.Token, opts ...ManagerOption) *Manager {
	m := &Manager{
		config: config,
		token:  cloneToken(token),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure returns an access token that is valid at the time of the call,
// refreshing the pair first if the current access token has expired.
// Callers must invoke it before every remote request.
func (m *Manager) Ensure(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.Valid() {
		return m.token.AccessToken, nil
	}

	if m.token.RefreshToken == "" {
		return "", ErrReauthRequired
	}

	newToken, err := m.config.TokenSource(ctx, m.token).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", fmt.Errorf("%w: %v", ErrReauthRequired, retrieveErr)
		}
		return "", fmt.Errorf("refreshing access token: %w", err)
	}

	m.token = newToken
	if m.onRefresh != nil {
		m.onRefresh(cloneToken(newToken))
	}

	return m.token.AccessToken, nil
}

// Invalidate marks the current access token as expired so the next Ensure
// performs a refresh. Used when the provider rejects a token with 401
// before its recorded expiry.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token.Expiry = time.Now().Add(-time.Minute)
}

// Token returns a copy of the current token pair.
func (m *Manager) Token() *oauth2.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneToken(m.token)
}

func cloneToken(t *oauth2.Token) *oauth2.Token {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
