package calendar

import (
	"slices"
	"time"

	gcal "google.golang.org/api/calendar/v3"
)

// DefaultCalendarID is used when no calendar has been selected.
const DefaultCalendarID = "primary"

// SendUpdates controls whether Google notifies attendees about a change.
type SendUpdates string

const (
	SendUpdatesAll  SendUpdates = "all"
	SendUpdatesNone SendUpdates = "none"
)

// Event is a calendar event as seen by the assistant.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Attendees   []string  `json:"attendees"`
	Link        string    `json:"link,omitempty"`

	// source is the backend representation the event was read from, used to
	// write back fields the assistant does not model.
	source *gcal.Event
}

// HasAttendee reports whether email is already invited. The match is exact.
func (e *Event) HasAttendee(email string) bool {
	return slices.Contains(e.Attendees, email)
}

func (e Event) clone() Event {
	e.Attendees = slices.Clone(e.Attendees)
	return e
}

// CreateEventInput holds the arguments of create_event.
type CreateEventInput struct {
	Summary     string   `json:"summary"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Attendees   []string `json:"attendees"`
}

// ListEventsInput holds the arguments of list_events.
type ListEventsInput struct {
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	MaxResults int    `json:"max_results,omitempty"`
}

// ListQuery is a range query against a backend.
// MaxResults of zero lets the backend return every event in range.
type ListQuery struct {
	TimeMin    time.Time
	TimeMax    time.Time
	MaxResults int64
}

// Result is the outcome of a Client operation.
// Backend failures are reported here with Success false rather than as errors.
type Result struct {
	Success bool    `json:"success"`
	Event   *Event  `json:"event,omitempty"`
	Events  []Event `json:"events,omitempty"`
	Message string  `json:"message,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// CalendarInfo represents information about a calendar
type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"time_zone,omitempty"`
	Primary     bool   `json:"primary,omitempty"`
	AccessRole  string `json:"access_role,omitempty"` // "owner", "writer", "reader", "freeBusyReader"
}

// CalendarSelector supplies the calendar ID operations run against.
type CalendarSelector interface {
	SelectedCalendarID() string
}

// StaticCalendar always selects the same calendar.
type StaticCalendar string

// SelectedCalendarID returns the calendar ID, or "primary" when empty.
func (s StaticCalendar) SelectedCalendarID() string {
	if s == "" {
		return DefaultCalendarID
	}
	return string(s)
}
