package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultAccount is the account name used when none is given.
const DefaultAccount = "default"

// oobRedirectURL is the out-of-band redirect used by the CLI code flow.
const oobRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// OAuthConfig holds the Google OAuth client settings.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint defaults to google.Endpoint; tests point it at a local server.
	Endpoint oauth2.Endpoint
}

// ConfigFromEnv reads GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL.
func ConfigFromEnv() OAuthConfig {
	return OAuthConfig{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
	}
}

// Validate reports missing client credentials.
func (c OAuthConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("google client ID is required (set GOOGLE_CLIENT_ID or --google-client-id)")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("google client secret is required (set GOOGLE_CLIENT_SECRET or --google-client-secret)")
	}
	return nil
}

// OAuth2 returns the oauth2.Config for the calendar scope.
func (c OAuthConfig) OAuth2() *oauth2.Config {
	endpoint := c.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	redirect := c.RedirectURL
	if redirect == "" {
		redirect = oobRedirectURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirect,
		Scopes:       DefaultOAuthScopes,
	}
}

// GetAuthURL returns the URL the user visits to authorize calendar access.
func GetAuthURL(cfg OAuthConfig, state string) string {
	return cfg.OAuth2().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// SaveToken exchanges an authorization code and stores the token for account.
func SaveToken(ctx context.Context, cfg OAuthConfig, store TokenSaver, account, authCode string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}

	t, err := cfg.OAuth2().Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	if err := store.SaveTokenForAccount(account, t); err != nil {
		return fmt.Errorf("failed to save token for account %s: %w", account, err)
	}
	return nil
}

// GetAuthenticationErrorMessage explains how to authorize an account that has no token.
func GetAuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("Google OAuth token not found for account %q. Run 'calassist auth --account %s' to authorize calendar access.", account, account)
}

// NewHTTPClient returns an HTTP client authenticated by ts.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func NewHTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client
}

func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

// DefaultTokenDir is where tokens live unless CALASSIST_TOKEN_DIR overrides it.
func DefaultTokenDir() string {
	if dir := os.Getenv("CALASSIST_TOKEN_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(userCacheDir(), "calassist")
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		return os.TempDir()
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
