package session

import (
	"strings"
	"sync"

	"github.com/teemow/calassist/internal/calendar"
)

// KeySelectedCalendarID stores the calendar the session operates on.
const KeySelectedCalendarID = "selected_calendar_id"

// Store is a string key/value store scoped to one session.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStore is an in-memory Store safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// SelectedCalendarID returns the calendar selected in the store or the
// primary calendar when none is set.
func (s *MemoryStore) SelectedCalendarID() string {
	return SelectedCalendarID(s)
}

// SelectCalendar sets the calendar the session operates on. An empty ID
// reverts to the primary calendar.
func (s *MemoryStore) SelectCalendar(calendarID string) {
	calendarID = strings.TrimSpace(calendarID)
	if calendarID == "" {
		s.Delete(KeySelectedCalendarID)
		return
	}
	s.Set(KeySelectedCalendarID, calendarID)
}

// SelectedCalendarID reads the selected calendar from any Store.
func SelectedCalendarID(s Store) string {
	if s == nil {
		return calendar.DefaultCalendarID
	}
	if v, ok := s.Get(KeySelectedCalendarID); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return calendar.DefaultCalendarID
}

var _ calendar.CalendarSelector = (*MemoryStore)(nil)
