package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when an account has never been authorized.
var ErrNoToken = errors.New("no Google OAuth token found")

// TokenProvider is an interface for providing OAuth tokens for Google APIs
// This abstraction allows different token sources (file-based, in-memory, etc.)
type TokenProvider interface {
	// GetTokenForAccount retrieves an OAuth token for the specified account
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount checks if a token exists for the specified account
	HasTokenForAccount(account string) bool
}

// TokenSaver persists tokens, e.g. after an authorization code exchange or a refresh.
type TokenSaver interface {
	SaveTokenForAccount(account string, token *oauth2.Token) error
}

// FileTokenProvider stores one JSON token file per account in a directory.
type FileTokenProvider struct {
	dir string
}

// NewFileTokenProvider creates a provider rooted at DefaultTokenDir.
func NewFileTokenProvider() *FileTokenProvider {
	return NewFileTokenProviderInDir(DefaultTokenDir())
}

// NewFileTokenProviderInDir creates a provider rooted at dir.
func NewFileTokenProviderInDir(dir string) *FileTokenProvider {
	return &FileTokenProvider{dir: dir}
}

// Dir returns the token directory.
func (p *FileTokenProvider) Dir() string {
	return p.dir
}

func (p *FileTokenProvider) tokenFilePath(account string) string {
	return filepath.Join(p.dir, "google-"+account+".token")
}

// GetTokenForAccount reads the stored token for account.
func (p *FileTokenProvider) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.tokenFilePath(account))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	token, err := parseToken(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token for account %s: %w", account, err)
	}
	return token, nil
}

// HasTokenForAccount checks if a token file exists for the specified account
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	if validateAccountName(account) != nil {
		return false
	}
	_, err := os.Stat(p.tokenFilePath(account))
	return err == nil
}

// SaveTokenForAccount writes token as JSON with owner-only permissions.
func (p *FileTokenProvider) SaveTokenForAccount(account string, token *oauth2.Token) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	if err := os.MkdirAll(p.dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	// Write then rename so a crash never leaves a truncated token behind.
	path := p.tokenFilePath(account)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// parseToken accepts the JSON format and the older "access refresh" text format.
func parseToken(data []byte) (*oauth2.Token, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("token file is empty")
	}

	if strings.HasPrefix(trimmed, "{") {
		var token oauth2.Token
		if err := json.Unmarshal([]byte(trimmed), &token); err != nil {
			return nil, err
		}
		if token.AccessToken == "" && token.RefreshToken == "" {
			return nil, fmt.Errorf("token has neither access nor refresh token")
		}
		return &token, nil
	}

	f := strings.Fields(trimmed)
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token format")
	}
	// Legacy tokens carry no expiry; force an immediate refresh.
	return &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	}, nil
}
