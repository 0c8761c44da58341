package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"jane@example.com", "example.com"},
		{"test@subdomain.example.com", "subdomain.example.com"},
		{"invalid", "unknown"},
		{"", "unknown"},
		{"@", "unknown"},
		{"user@", "unknown"},
		{"@domain.com", "domain.com"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractUserDomain(tt.email))
		})
	}
}

func TestCalendarKind(t *testing.T) {
	tests := []struct {
		calendarID string
		expected   string
	}{
		{"", CalendarKindNone},
		{"primary", CalendarKindPrimary},
		{"Primary", CalendarKindPrimary},
		{"c_1234abcd@group.calendar.google.com", CalendarKindGroup},
		{"en.usa#holiday@group.v.calendar.google.com", CalendarKindSubscribed},
		{"jane@example.com", CalendarKindUser},
		{"not-a-calendar", CalendarKindOther},
	}

	for _, tt := range tests {
		t.Run(tt.calendarID, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalendarKind(tt.calendarID))
		})
	}
}
