package google

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// RefreshHook observes token refresh attempts. err is nil on success.
type RefreshHook func(err error)

// Credentials is a refreshing token source for one account.
// When the underlying source hands out a new access token it is persisted
// through the saver so the next process starts with a fresh token.
type Credentials struct {
	account   string
	base      oauth2.TokenSource
	saver     TokenSaver
	onRefresh RefreshHook

	mu   sync.Mutex
	last *oauth2.Token
}

// NewCredentials loads the stored token for account and wraps it in a refreshing source.
// saver and onRefresh may be nil.
func NewCredentials(ctx context.Context, cfg OAuthConfig, provider TokenProvider, account string, saver TokenSaver, onRefresh RefreshHook) (*Credentials, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	token, err := provider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	return &Credentials{
		account:   account,
		base:      cfg.OAuth2().TokenSource(ctx, token),
		saver:     saver,
		onRefresh: onRefresh,
		last:      token,
	}, nil
}

// Account returns the account name these credentials belong to.
func (c *Credentials) Account() string {
	return c.account
}

// Token implements oauth2.TokenSource.
func (c *Credentials) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := c.last == nil || !c.last.Valid()

	token, err := c.base.Token()
	if err != nil {
		if expired && c.onRefresh != nil {
			c.onRefresh(err)
		}
		return nil, fmt.Errorf("failed to refresh Google OAuth token: %w", err)
	}

	if c.last == nil || token.AccessToken != c.last.AccessToken {
		if c.onRefresh != nil {
			c.onRefresh(nil)
		}
		if c.saver != nil {
			if err := c.saver.SaveTokenForAccount(c.account, token); err != nil {
				return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
			}
		}
		c.last = token
	}

	return token, nil
}

// HTTPClient returns an HTTP client that authenticates with these credentials.
func (c *Credentials) HTTPClient(ctx context.Context) *http.Client {
	return NewHTTPClient(ctx, c)
}
