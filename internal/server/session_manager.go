package server

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/chat"
	"github.com/teemow/calassist/internal/google"
	"github.com/teemow/calassist/internal/llm"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/session"
	"github.com/teemow/calassist/internal/tools"
)

const (
	// DefaultSessionTimeout is how long an idle chat session is kept.
	DefaultSessionTimeout = 24 * time.Hour

	// DefaultCleanupInterval is how often idle sessions are swept.
	DefaultCleanupInterval = 10 * time.Minute
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Session is one chat session. It owns its event cache, its key/value
// store and its conversation so nothing leaks between users.
type Session struct {
	ID        string
	Account   string
	CreatedAt time.Time

	store        *session.MemoryStore
	backend      CalendarBackend
	client       *calendar.Client
	conversation *chat.Conversation

	mu         sync.Mutex
	lastAccess time.Time
}

// SessionInfo is the public view of a session.
type SessionInfo struct {
	ID           string    `json:"id"`
	Account      string    `json:"account"`
	CalendarID   string    `json:"calendar_id"`
	Messages     int       `json:"messages"`
	CachedEvents int       `json:"cached_events"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccess   time.Time `json:"last_access"`
}

// Send runs one chat turn.
func (s *Session) Send(ctx context.Context, text string) (*chat.Reply, error) {
	return s.conversation.Send(ctx, text)
}

// History returns the conversation so far.
func (s *Session) History() []llm.Message {
	return s.conversation.History()
}

// SelectCalendar switches the calendar the session operates on.
func (s *Session) SelectCalendar(calendarID string) {
	s.store.SelectCalendar(calendarID)
}

// CalendarID returns the selected calendar.
func (s *Session) CalendarID() string {
	return s.client.CalendarID()
}

// Calendars lists the calendars the session's account can access.
func (s *Session) Calendars(ctx context.Context) ([]calendar.CalendarInfo, error) {
	return s.backend.ListCalendars(ctx)
}

// Info returns a snapshot of the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	last := s.lastAccess
	s.mu.Unlock()

	return SessionInfo{
		ID:           s.ID,
		Account:      s.Account,
		CalendarID:   s.CalendarID(),
		Messages:     len(s.History()),
		CachedEvents: s.client.Cache().Len(),
		CreatedAt:    s.CreatedAt,
		LastAccess:   last,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccess)
}

// SessionManagerConfig configures a SessionManager.
type SessionManagerConfig struct {
	// Provider answers every session's chat turns.
	Provider llm.Provider
	// ChatOptions are applied to every new conversation.
	ChatOptions []chat.Option

	SessionTimeout  time.Duration
	CleanupInterval time.Duration
}

// SessionManager creates chat sessions and expires idle ones.
type SessionManager struct {
	sc       *ServerContext
	provider llm.Provider
	chatOpts []chat.Option
	logger   *slog.Logger
	now      func() time.Time

	sessions       map[string]*Session
	mu             sync.RWMutex
	cleanupTicker  *time.Ticker
	cleanupDone    chan struct{}
	stopOnce       sync.Once
	sessionTimeout time.Duration
}

// NewSessionManager creates a session manager and starts its cleanup loop.
func NewSessionManager(sc *ServerContext, cfg SessionManagerConfig) *SessionManager {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultSessionTimeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}

	m := &SessionManager{
		sc:             sc,
		provider:       cfg.Provider,
		chatOpts:       cfg.ChatOptions,
		logger:         sc.Logger(),
		now:            time.Now,
		sessions:       make(map[string]*Session),
		cleanupTicker:  time.NewTicker(cfg.CleanupInterval),
		cleanupDone:    make(chan struct{}),
		sessionTimeout: cfg.SessionTimeout,
	}

	go m.cleanupExpiredSessions()

	return m
}

// Create starts a session for account operating on calendarID
// (the primary calendar when empty).
func (m *SessionManager) Create(ctx context.Context, account, calendarID string) (*Session, error) {
	if account == "" {
		account = google.DefaultAccount
	}

	backend, err := m.sc.BackendForAccount(account)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := logging.WithSession(m.logger, id)

	store := session.NewMemoryStore()
	store.SelectCalendar(calendarID)

	client := calendar.NewClient(backend, store, logger, calendar.WithMetrics(m.sc.Metrics()))
	dispatcher := tools.NewDispatcher(client, logger,
		tools.WithMetrics(m.sc.Metrics()),
		tools.WithAuditLogger(m.sc.AuditLogger()),
		tools.WithSession(id),
		tools.WithAccount(account),
	)

	now := m.now()
	s := &Session{
		ID:           id,
		Account:      account,
		CreatedAt:    now,
		store:        store,
		backend:      backend,
		client:       client,
		conversation: chat.New(m.provider, dispatcher, logger, m.chatOpts...),
		lastAccess:   now,
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.sc.Metrics().IncrementActiveSessions(ctx)
	logger.Info("session created", logging.Account(account), logging.Calendar(s.CalendarID()))
	return s, nil
}

// Get returns the session with id and marks it as used.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Remove ends a session. It reports whether the session existed.
func (m *SessionManager) Remove(ctx context.Context, id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.sc.Metrics().DecrementActiveSessions(ctx)
		m.logger.Info("session removed", slog.String(logging.KeySession, id))
	}
	return ok
}

// List returns the active session IDs in sorted order.
func (m *SessionManager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of active sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// expire removes sessions idle for longer than the session timeout.
func (m *SessionManager) expire(now time.Time) int {
	m.mu.Lock()
	expired := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > m.sessionTimeout {
			delete(m.sessions, id)
			expired++
		}
	}
	m.mu.Unlock()

	for i := 0; i < expired; i++ {
		m.sc.Metrics().DecrementActiveSessions(m.sc.Context())
	}
	return expired
}

// cleanupExpiredSessions periodically removes expired sessions
func (m *SessionManager) cleanupExpiredSessions() {
	for {
		select {
		case <-m.cleanupTicker.C:
			if n := m.expire(m.now()); n > 0 {
				m.logger.Info("Cleaned up expired sessions", "count", n)
			}
		case <-m.cleanupDone:
			return
		}
	}
}

// Stop stops the session cleanup goroutine
func (m *SessionManager) Stop() {
	m.stopOnce.Do(func() {
		m.cleanupTicker.Stop()
		close(m.cleanupDone)
	})
}
