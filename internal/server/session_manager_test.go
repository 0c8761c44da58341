package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/llm"
)

func TestSessionManager_CreateAndGet(t *testing.T) {
	m, _ := newTestSessionManager(&commandProvider{})
	defer m.Stop()

	s, err := m.Create(context.Background(), "", "")
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "default", s.Account)
	assert.Equal(t, calendar.DefaultCalendarID, s.CalendarID())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, []string{s.ID}, m.List())
	assert.Equal(t, 1, m.Len())

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManager_CreateWithCalendar(t *testing.T) {
	m, backends := newTestSessionManager(&commandProvider{})
	defer m.Stop()

	s, err := m.Create(context.Background(), "other", "team@group.calendar.google.com")
	require.NoError(t, err)
	assert.Equal(t, "team@group.calendar.google.com", s.CalendarID())

	_, err = s.Send(context.Background(), "create Standup")
	require.NoError(t, err)
	assert.Equal(t, []string{"team@group.calendar.google.com"}, backends["other"].inserted)
	assert.Empty(t, backends["default"].inserted)
}

func TestSessionManager_UnknownAccount(t *testing.T) {
	m, _ := newTestSessionManager(&commandProvider{})
	defer m.Stop()

	_, err := m.Create(context.Background(), "nobody", "")
	require.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestSession_CachesAreIsolated(t *testing.T) {
	m, _ := newTestSessionManager(&commandProvider{})
	defer m.Stop()

	a, err := m.Create(context.Background(), "default", "")
	require.NoError(t, err)
	b, err := m.Create(context.Background(), "default", "")
	require.NoError(t, err)

	reply, err := a.Send(context.Background(), "create Standup")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Event 'Standup' created successfully")
	require.Len(t, reply.Executed, 1)
	assert.True(t, reply.Executed[0].Result.Success)

	assert.Equal(t, 1, a.Info().CachedEvents)
	assert.Equal(t, 0, b.Info().CachedEvents)

	history := a.History()
	require.Len(t, history, 4)
	assert.Equal(t, llm.RoleTool, history[2].Role)
	assert.Len(t, b.History(), 1)
}

func TestSession_SelectCalendar(t *testing.T) {
	m, _ := newTestSessionManager(&commandProvider{})
	defer m.Stop()

	s, err := m.Create(context.Background(), "", "")
	require.NoError(t, err)

	s.SelectCalendar("team@group.calendar.google.com")
	assert.Equal(t, "team@group.calendar.google.com", s.CalendarID())

	s.SelectCalendar("")
	assert.Equal(t, calendar.DefaultCalendarID, s.CalendarID())
}

func TestSessionManager_Remove(t *testing.T) {
	m, _ := newTestSessionManager(&commandProvider{})
	defer m.Stop()

	s, err := m.Create(context.Background(), "", "")
	require.NoError(t, err)

	assert.True(t, m.Remove(context.Background(), s.ID))
	assert.False(t, m.Remove(context.Background(), s.ID))
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManager_ExpiresIdleSessions(t *testing.T) {
	m, _ := newTestSessionManager(&commandProvider{})
	defer m.Stop()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle, err := m.Create(context.Background(), "", "")
	require.NoError(t, err)
	active, err := m.Create(context.Background(), "", "")
	require.NoError(t, err)

	now = now.Add(DefaultSessionTimeout - time.Minute)
	_, err = m.Get(active.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, m.expire(now.Add(2*time.Minute)))
	assert.Equal(t, []string{active.ID}, m.List())

	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManager_StopIsIdempotent(t *testing.T) {
	m, _ := newTestSessionManager(&commandProvider{})
	m.Stop()
	m.Stop()
}

func TestServerContext_Shutdown(t *testing.T) {
	sc, _ := newTestServerContext()
	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown())

	assert.True(t, sc.IsShutdown())
	_, err := sc.BackendForAccount("default")
	assert.ErrorIs(t, err, ErrServerShutdown)
}

func TestServerContext_NoTokenStore(t *testing.T) {
	sc := NewServerContext(context.Background(), ContextConfig{Logger: discardLogger()})
	_, err := sc.BackendForAccount("default")
	assert.Error(t, err)
}
