package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/calassist/internal/instrumentation"
)

// GoogleBackend implements Backend with the Google Calendar v3 API.
type GoogleBackend struct {
	svc     *gcal.Service
	metrics *instrumentation.Metrics
}

// NewGoogleBackend creates a backend that sends requests through httpClient,
// which is expected to carry OAuth credentials.
func NewGoogleBackend(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*GoogleBackend, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gcal.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &GoogleBackend{svc: svc}, nil
}

// SetMetrics records every API call on m.
func (b *GoogleBackend) SetMetrics(m *instrumentation.Metrics) {
	b.metrics = m
}

// observe wraps one API call with a span, metrics and error translation.
// calendarID is empty for calls on the calendar list.
func (b *GoogleBackend) observe(ctx context.Context, op, calendarID string, call func(context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, op)
	defer span.End()

	start := time.Now()
	err := call(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	b.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, op, calendarID, status, time.Since(start))

	if err != nil {
		instrumentation.SetSpanError(span, err)
		return wrapGoogleError(op, err)
	}
	instrumentation.SetSpanSuccess(span)
	return nil
}

func wrapGoogleError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &RemoteServiceError{Op: op, StatusCode: gerr.Code, Err: err}
	}
	return &RemoteServiceError{Op: op, Err: err}
}

// GetEvent fetches one event.
func (b *GoogleBackend) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	var out *gcal.Event
	err := b.observe(ctx, instrumentation.OperationGet, calendarID, func(ctx context.Context) error {
		var err error
		out, err = b.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	ev := fromGoogleEvent(out)
	return &ev, nil
}

// ListEvents expands recurring events and orders by start time.
// Without a MaxResults limit every page in range is read.
func (b *GoogleBackend) ListEvents(ctx context.Context, calendarID string, q ListQuery) ([]Event, error) {
	var events []Event
	err := b.observe(ctx, instrumentation.OperationList, calendarID, func(ctx context.Context) error {
		call := b.svc.Events.List(calendarID).
			TimeMin(q.TimeMin.Format(time.RFC3339)).
			TimeMax(q.TimeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime")

		if q.MaxResults > 0 {
			resp, err := call.MaxResults(q.MaxResults).Context(ctx).Do()
			if err != nil {
				return err
			}
			for _, item := range resp.Items {
				events = append(events, fromGoogleEvent(item))
			}
			return nil
		}

		return call.Pages(ctx, func(page *gcal.Events) error {
			for _, item := range page.Items {
				events = append(events, fromGoogleEvent(item))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// InsertEvent creates ev with times in UTC.
func (b *GoogleBackend) InsertEvent(ctx context.Context, calendarID string, ev *Event, send SendUpdates) (*Event, error) {
	var out *gcal.Event
	err := b.observe(ctx, instrumentation.OperationCreate, calendarID, func(ctx context.Context) error {
		var err error
		out, err = b.svc.Events.Insert(calendarID, toGoogleEvent(ev)).
			SendUpdates(string(send)).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	created := fromGoogleEvent(out)
	return &created, nil
}

// UpdateEvent writes ev back. Events read from this backend are replaced in
// full with their unmodelled fields preserved; other events are patched.
func (b *GoogleBackend) UpdateEvent(ctx context.Context, calendarID string, ev *Event, send SendUpdates) (*Event, error) {
	var out *gcal.Event
	err := b.observe(ctx, instrumentation.OperationUpdate, calendarID, func(ctx context.Context) error {
		var err error
		if ev.source != nil {
			body := *ev.source
			body.Summary = ev.Summary
			body.Description = ev.Description
			body.Location = ev.Location
			body.Attendees = mergeAttendees(ev.source.Attendees, ev.Attendees)
			out, err = b.svc.Events.Update(calendarID, ev.ID, &body).
				SendUpdates(string(send)).
				Context(ctx).
				Do()
			return err
		}
		out, err = b.svc.Events.Patch(calendarID, ev.ID, &gcal.Event{
			Summary:     ev.Summary,
			Description: ev.Description,
			Location:    ev.Location,
			Attendees:   mergeAttendees(nil, ev.Attendees),
		}).SendUpdates(string(send)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	updated := fromGoogleEvent(out)
	return &updated, nil
}

// DeleteEvent deletes one event.
func (b *GoogleBackend) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return b.observe(ctx, instrumentation.OperationDelete, calendarID, func(ctx context.Context) error {
		return b.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	})
}

// ListCalendars lists all calendars accessible to the user
func (b *GoogleBackend) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	var calendars []CalendarInfo
	err := b.observe(ctx, instrumentation.OperationList, "", func(ctx context.Context) error {
		return b.svc.CalendarList.List().Pages(ctx, func(page *gcal.CalendarList) error {
			for _, entry := range page.Items {
				calendars = append(calendars, toCalendarInfo(entry))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return calendars, nil
}

// GetPrimaryCalendar retrieves information about the primary calendar
func (b *GoogleBackend) GetPrimaryCalendar(ctx context.Context) (*CalendarInfo, error) {
	var info CalendarInfo
	err := b.observe(ctx, instrumentation.OperationGet, DefaultCalendarID, func(ctx context.Context) error {
		entry, err := b.svc.CalendarList.Get(DefaultCalendarID).Context(ctx).Do()
		if err != nil {
			return err
		}
		info = toCalendarInfo(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// mergeAttendees keeps the existing attendee records (response status,
// display name) for addresses that are still invited.
func mergeAttendees(existing []*gcal.EventAttendee, emails []string) []*gcal.EventAttendee {
	if len(emails) == 0 {
		return nil
	}
	known := make(map[string]*gcal.EventAttendee, len(existing))
	for _, a := range existing {
		if a != nil {
			known[a.Email] = a
		}
	}
	out := make([]*gcal.EventAttendee, 0, len(emails))
	for _, email := range emails {
		if a, ok := known[email]; ok {
			out = append(out, a)
			continue
		}
		out = append(out, &gcal.EventAttendee{Email: email})
	}
	return out
}

func toGoogleEvent(ev *Event) *gcal.Event {
	return &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start: &gcal.EventDateTime{
			DateTime: ev.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: ev.End.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Attendees: mergeAttendees(nil, ev.Attendees),
	}
}

// fromGoogleEvent converts a Google Calendar event to an Event
func fromGoogleEvent(item *gcal.Event) Event {
	if item == nil {
		return Event{}
	}

	ev := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Link:        item.HtmlLink,
		Attendees:   []string{},
		source:      item,
	}

	ev.Start, ev.AllDay = parseEventTime(item.Start)
	ev.End, _ = parseEventTime(item.End)

	for _, att := range item.Attendees {
		if att != nil && att.Email != "" {
			ev.Attendees = append(ev.Attendees, att.Email)
		}
	}

	return ev
}

// parseEventTime reads dateTime or, for all-day events, date.
func parseEventTime(edt *gcal.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t, false
		}
	}
	if edt.Date != "" {
		if t, err := time.Parse(time.DateOnly, edt.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// toCalendarInfo converts a Google Calendar list entry to CalendarInfo
func toCalendarInfo(entry *gcal.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:          entry.Id,
		Summary:     entry.Summary,
		Description: entry.Description,
		TimeZone:    entry.TimeZone,
		Primary:     entry.Primary,
		AccessRole:  entry.AccessRole,
	}
}
