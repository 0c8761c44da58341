package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/google"
	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
)

// ErrServerShutdown is returned once the server context has been shut down.
var ErrServerShutdown = errors.New("server is shutting down")

// CalendarBackend is the Google Calendar surface the server hands to sessions.
type CalendarBackend interface {
	calendar.Backend
	ListCalendars(ctx context.Context) ([]calendar.CalendarInfo, error)
}

var _ CalendarBackend = (*calendar.GoogleBackend)(nil)

// TokenStore loads and persists Google OAuth tokens per account.
type TokenStore interface {
	google.TokenProvider
	google.TokenSaver
}

// ContextConfig configures a ServerContext.
type ContextConfig struct {
	OAuth   google.OAuthConfig
	Tokens  TokenStore
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// ServerContext holds the process-wide dependencies shared by every session:
// one calendar backend per Google account, created lazily.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	oauth    google.OAuthConfig
	tokens   TokenStore
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	logger   *slog.Logger
	backends map[string]CalendarBackend // Maps account name to backend
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, cfg ContextConfig) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		oauth:    cfg.OAuth,
		tokens:   cfg.Tokens,
		metrics:  cfg.Metrics,
		audit:    cfg.Audit,
		logger:   logger,
		backends: make(map[string]CalendarBackend),
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder, nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, nil when auditing is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.audit
}

// BackendForAccount returns the calendar backend for account.
// Creates and caches the backend if it doesn't exist yet.
func (sc *ServerContext) BackendForAccount(account string) (CalendarBackend, error) {
	if account == "" {
		account = google.DefaultAccount
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrServerShutdown
	}
	if b, ok := sc.backends[account]; ok {
		return b, nil
	}
	if sc.tokens == nil {
		return nil, fmt.Errorf("no token store configured for account %s", account)
	}

	creds, err := google.NewCredentials(sc.ctx, sc.oauth, sc.tokens, account, sc.tokens, sc.recordRefresh(account))
	if err != nil {
		if errors.Is(err, google.ErrNoToken) {
			return nil, fmt.Errorf("%s: %w", google.GetAuthenticationErrorMessage(account), err)
		}
		return nil, err
	}

	backend, err := calendar.NewGoogleBackend(sc.ctx, creds.HTTPClient(sc.ctx))
	if err != nil {
		return nil, err
	}
	backend.SetMetrics(sc.metrics)

	sc.logger.Info("created calendar backend", logging.Account(account))
	sc.backends[account] = backend
	return backend, nil
}

// SetBackendForAccount sets the calendar backend for a specific account
func (sc *ServerContext) SetBackendForAccount(account string, backend CalendarBackend) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.backends[account] = backend
}

func (sc *ServerContext) recordRefresh(account string) google.RefreshHook {
	return func(err error) {
		result := instrumentation.OAuthResultSuccess
		if err != nil {
			result = instrumentation.OAuthResultFailure
			sc.logger.Warn("google token refresh failed", logging.Account(account), logging.Err(err))
		}
		sc.metrics.RecordOAuthTokenRefresh(sc.ctx, result)
	}
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
