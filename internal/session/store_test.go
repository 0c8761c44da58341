package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/calassist/internal/calendar"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Set("k", "v")
	v, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	s.Delete("k")
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestSelectedCalendarID(t *testing.T) {
	tests := []struct {
		name string
		set  string
		want string
	}{
		{"unset", "", "primary"},
		{"custom", "team@group.calendar.google.com", "team@group.calendar.google.com"},
		{"whitespace", "   ", "primary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore()
			if tt.set != "" {
				s.Set(KeySelectedCalendarID, tt.set)
			}
			assert.Equal(t, tt.want, s.SelectedCalendarID())
		})
	}

	assert.Equal(t, calendar.DefaultCalendarID, SelectedCalendarID(nil))
}

func TestSelectCalendar(t *testing.T) {
	s := NewMemoryStore()

	s.SelectCalendar(" work@example.com ")
	assert.Equal(t, "work@example.com", s.SelectedCalendarID())

	s.SelectCalendar("")
	_, ok := s.Get(KeySelectedCalendarID)
	assert.False(t, ok)
	assert.Equal(t, "primary", s.SelectedCalendarID())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			s.Set(key, "v")
			s.Get(key)
			s.SelectedCalendarID()
		}()
	}
	wg.Wait()
}
