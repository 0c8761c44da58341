package calendar

import "context"

// Backend is the calendar service the Client operates on. Every call is keyed
// by a calendar ID.
//
// Implementations report a missing event with an error that matches ErrNotFound.
type Backend interface {
	GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error)
	ListEvents(ctx context.Context, calendarID string, q ListQuery) ([]Event, error)
	InsertEvent(ctx context.Context, calendarID string, ev *Event, send SendUpdates) (*Event, error)
	UpdateEvent(ctx context.Context, calendarID string, ev *Event, send SendUpdates) (*Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
