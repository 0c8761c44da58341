package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// fakeBackend is an in-memory Backend that records calls.
type fakeBackend struct {
	mu     sync.Mutex
	events map[string]*Event
	nextID int

	getErr    error
	listErr   error
	insertErr error
	updateErr error
	deleteErr error

	calls        map[string]int
	lastSend     SendUpdates
	lastCalendar string
	lastQuery    ListQuery
}

func newFakeBackend(events ...Event) *fakeBackend {
	f := &fakeBackend{
		events: make(map[string]*Event),
		calls:  make(map[string]int),
	}
	for _, ev := range events {
		ev := ev.clone()
		f.events[ev.ID] = &ev
	}
	return f
}

func notFoundErr(op string) error {
	return &RemoteServiceError{Op: op, StatusCode: http.StatusNotFound, Err: errors.New("googleapi: Error 404: Not Found")}
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) GetEvent(_ context.Context, calendarID, eventID string) (*Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["get"]++
	f.lastCalendar = calendarID
	if f.getErr != nil {
		return nil, f.getErr
	}
	ev, ok := f.events[eventID]
	if !ok {
		return nil, notFoundErr("get")
	}
	out := ev.clone()
	return &out, nil
}

func (f *fakeBackend) ListEvents(_ context.Context, calendarID string, q ListQuery) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++
	f.lastCalendar = calendarID
	f.lastQuery = q
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Event
	for _, ev := range f.events {
		if ev.End.After(q.TimeMin) && ev.Start.Before(q.TimeMax) {
			out = append(out, ev.clone())
		}
	}
	return out, nil
}

func (f *fakeBackend) InsertEvent(_ context.Context, calendarID string, ev *Event, send SendUpdates) (*Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["insert"]++
	f.lastCalendar = calendarID
	f.lastSend = send
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.nextID++
	created := ev.clone()
	created.ID = fmt.Sprintf("evt%03d", f.nextID)
	created.Link = "https://calendar.google.com/event?eid=" + created.ID
	if created.Attendees == nil {
		created.Attendees = []string{}
	}
	f.events[created.ID] = &created
	out := created.clone()
	return &out, nil
}

func (f *fakeBackend) UpdateEvent(_ context.Context, calendarID string, ev *Event, send SendUpdates) (*Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	f.lastCalendar = calendarID
	f.lastSend = send
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if _, ok := f.events[ev.ID]; !ok {
		return nil, notFoundErr("update")
	}
	updated := ev.clone()
	f.events[ev.ID] = &updated
	out := updated.clone()
	return &out, nil
}

func (f *fakeBackend) DeleteEvent(_ context.Context, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	f.lastCalendar = calendarID
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.events[eventID]; !ok {
		return notFoundErr("delete")
	}
	delete(f.events, eventID)
	return nil
}

// calendarsBackend routes every call to a fakeBackend per calendar ID.
type calendarsBackend map[string]*fakeBackend

func (b calendarsBackend) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	return b[calendarID].GetEvent(ctx, calendarID, eventID)
}

func (b calendarsBackend) ListEvents(ctx context.Context, calendarID string, q ListQuery) ([]Event, error) {
	return b[calendarID].ListEvents(ctx, calendarID, q)
}

func (b calendarsBackend) InsertEvent(ctx context.Context, calendarID string, ev *Event, send SendUpdates) (*Event, error) {
	return b[calendarID].InsertEvent(ctx, calendarID, ev, send)
}

func (b calendarsBackend) UpdateEvent(ctx context.Context, calendarID string, ev *Event, send SendUpdates) (*Event, error) {
	return b[calendarID].UpdateEvent(ctx, calendarID, ev, send)
}

func (b calendarsBackend) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return b[calendarID].DeleteEvent(ctx, calendarID, eventID)
}
