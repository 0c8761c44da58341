package calendar

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
)

const (
	// DefaultMaxResults is used when list_events omits max_results.
	DefaultMaxResults = 10

	// MaxResultsLimit is the largest page the Calendar API serves.
	MaxResultsLimit = 2500
)

// Messages returned alongside backend failures.
const (
	msgCreateFailed = "Error creating event in Google Calendar."
	msgListFailed   = "Error listing events from Google Calendar."
	msgAddFailed    = "Error adding attendee to event in Google Calendar."
	msgDeleteFailed = "Error deleting event from Google Calendar."

	errEventNotFound  = "Event not found"
	errAttendeeExists = "Attendee already exists"
)

// Client executes calendar operations for one session. It owns the session's
// event caches, one per calendar, so aliases learned on one calendar never
// resolve on another. Construct one Client per session and drop it with the session.
type Client struct {
	backend  Backend
	mu       sync.Mutex
	caches   map[string]*EventCache
	resolver *Resolver
	selector CalendarSelector
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records cache lookups on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
		c.resolver.metrics = m
	}
}

// WithClock overrides the clock used for the title search window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.resolver.now = now
	}
}

// NewClient creates a Client with empty caches.
// A nil selector selects the primary calendar.
func NewClient(backend Backend, selector CalendarSelector, logger *slog.Logger, opts ...Option) *Client {
	if selector == nil {
		selector = StaticCalendar(DefaultCalendarID)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithService(logger, instrumentation.ServiceCalendar)

	c := &Client{
		backend:  backend,
		caches:   make(map[string]*EventCache),
		selector: selector,
		logger:   logger,
	}
	c.resolver = newResolver(backend, c.cacheFor, logger)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache returns the cache of the currently selected calendar.
func (c *Client) Cache() *EventCache {
	return c.cacheFor(c.CalendarID())
}

func (c *Client) cacheFor(calendarID string) *EventCache {
	c.mu.Lock()
	defer c.mu.Unlock()

	cache, ok := c.caches[calendarID]
	if !ok {
		cache = NewEventCache()
		c.caches[calendarID] = cache
	}
	return cache
}

// CalendarID returns the calendar operations currently run against.
func (c *Client) CalendarID() string {
	if id := strings.TrimSpace(c.selector.SelectedCalendarID()); id != "" {
		return id
	}
	return DefaultCalendarID
}

// CreateEvent creates an event and caches it.
// Attendees are invited in input order and notified when present.
func (c *Client) CreateEvent(ctx context.Context, in CreateEventInput) (*Result, error) {
	if strings.TrimSpace(in.Summary) == "" {
		return nil, invalidInput("summary", in.Summary, errors.New("must not be empty"))
	}
	start, end, err := parseRange("start_time", in.StartTime, "end_time", in.EndTime)
	if err != nil {
		return nil, err
	}
	for _, email := range in.Attendees {
		if strings.TrimSpace(email) == "" {
			return nil, invalidInput("attendees", email, errors.New("attendee email must not be empty"))
		}
	}

	send := SendUpdatesNone
	if len(in.Attendees) > 0 {
		send = SendUpdatesAll
	}

	calendarID := c.CalendarID()
	created, err := c.backend.InsertEvent(ctx, calendarID, &Event{
		Summary:     in.Summary,
		Start:       start.UTC(),
		End:         end.UTC(),
		Description: in.Description,
		Location:    in.Location,
		Attendees:   slices.Clone(in.Attendees),
	}, send)
	if err != nil {
		c.logger.Error("failed to create event", logging.Calendar(calendarID), logging.Err(err))
		return remoteFailure(err, msgCreateFailed), nil
	}

	c.cacheFor(calendarID).Put(*created)
	c.logger.Info("event created",
		logging.Calendar(calendarID),
		logging.EventID(created.ID),
		slog.Int("attendees", len(created.Attendees)))

	return &Result{Success: true, Event: created, Message: "Event created successfully"}, nil
}

// ListEvents returns at most in.MaxResults events in range, earliest first,
// and caches each of them.
func (c *Client) ListEvents(ctx context.Context, in ListEventsInput) (*Result, error) {
	start, end, err := parseRange("start_date", in.StartDate, "end_date", in.EndDate)
	if err != nil {
		return nil, err
	}
	limit := clampMaxResults(in.MaxResults)

	calendarID := c.CalendarID()
	events, err := c.backend.ListEvents(ctx, calendarID, ListQuery{
		TimeMin:    start,
		TimeMax:    end,
		MaxResults: int64(limit),
	})
	if err != nil {
		c.logger.Error("failed to list events", logging.Calendar(calendarID), logging.Err(err))
		return remoteFailure(err, msgListFailed), nil
	}

	sortByStart(events)
	if len(events) > limit {
		events = events[:limit]
	}
	cache := c.cacheFor(calendarID)
	for _, ev := range events {
		cache.Put(ev)
	}
	if events == nil {
		events = []Event{}
	}

	c.logger.Debug("events listed", logging.Calendar(calendarID), slog.Int("count", len(events)))
	return &Result{
		Success: true,
		Events:  events,
		Message: fmt.Sprintf("Found %d events in the specified date range.", len(events)),
	}, nil
}

// AddAttendee invites email to the event identified by an ID or title.
// Inviting an existing attendee is rejected; the match is case-sensitive.
func (c *Client) AddAttendee(ctx context.Context, identifier, email string) (*Result, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, invalidInput("event_id", identifier, errors.New("must not be empty"))
	}
	if strings.TrimSpace(email) == "" {
		return nil, invalidInput("email", email, errors.New("must not be empty"))
	}

	calendarID := c.CalendarID()
	id, err := c.resolver.Resolve(ctx, calendarID, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(identifier), nil
		}
		c.logger.Error("failed to resolve event", logging.Calendar(calendarID), logging.Err(err))
		return remoteFailure(err, msgAddFailed), nil
	}

	ev, err := c.backend.GetEvent(ctx, calendarID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.cacheFor(calendarID).Remove(id)
			return notFound(identifier), nil
		}
		c.logger.Error("failed to fetch event", logging.Calendar(calendarID), logging.EventID(id), logging.Err(err))
		return remoteFailure(err, msgAddFailed), nil
	}

	if ev.HasAttendee(email) {
		return &Result{
			Success: false,
			Error:   errAttendeeExists,
			Message: fmt.Sprintf("%s is already an attendee of this event.", email),
		}, nil
	}

	ev.Attendees = append(ev.Attendees, email)
	updated, err := c.backend.UpdateEvent(ctx, calendarID, ev, SendUpdatesAll)
	if err != nil {
		c.logger.Error("failed to update event", logging.Calendar(calendarID), logging.EventID(id), logging.Err(err))
		return remoteFailure(err, msgAddFailed), nil
	}

	c.cacheFor(calendarID).Put(*updated)
	c.logger.Info("attendee added",
		logging.Calendar(calendarID),
		logging.EventID(id),
		logging.UserHash(email))

	return &Result{
		Success: true,
		Event:   updated,
		Message: fmt.Sprintf("Added %s to the event successfully", email),
	}, nil
}

// DeleteEvent deletes the event identified by an ID or title and drops it
// from the cache under both keys. No delete is issued when resolution fails.
func (c *Client) DeleteEvent(ctx context.Context, identifier string) (*Result, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, invalidInput("event_id", identifier, errors.New("must not be empty"))
	}

	calendarID := c.CalendarID()
	id, err := c.resolver.Resolve(ctx, calendarID, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(identifier), nil
		}
		c.logger.Error("failed to resolve event", logging.Calendar(calendarID), logging.Err(err))
		return remoteFailure(err, msgDeleteFailed), nil
	}

	cache := c.cacheFor(calendarID)
	snapshot, cached := cache.ByID(id)

	if err := c.backend.DeleteEvent(ctx, calendarID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			cache.Remove(id)
			return notFound(identifier), nil
		}
		c.logger.Error("failed to delete event", logging.Calendar(calendarID), logging.EventID(id), logging.Err(err))
		return remoteFailure(err, msgDeleteFailed), nil
	}

	cache.Remove(id)
	c.logger.Info("event deleted", logging.Calendar(calendarID), logging.EventID(id))

	res := &Result{Success: true, Message: "Event deleted successfully"}
	if cached {
		res.Event = &snapshot
	}
	return res, nil
}

func notFound(identifier string) *Result {
	return &Result{
		Success: false,
		Error:   errEventNotFound,
		Message: fmt.Sprintf("Could not find event with ID or title: %s", identifier),
	}
}

func remoteFailure(err error, message string) *Result {
	return &Result{Success: false, Error: err.Error(), Message: message}
}

func clampMaxResults(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxResults
	case n > MaxResultsLimit:
		return MaxResultsLimit
	default:
		return n
	}
}

func sortByStart(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Compare(a.Start.UnixNano(), b.Start.UnixNano())
	})
}
