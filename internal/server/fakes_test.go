package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/llm"
)

// memoryBackend is an in-memory CalendarBackend.
type memoryBackend struct {
	mu        sync.Mutex
	events    map[string]calendar.Event
	nextID    int
	calendars []calendar.CalendarInfo
	listErr   error
	inserted  []string // calendar IDs of inserts
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		events: make(map[string]calendar.Event),
		calendars: []calendar.CalendarInfo{
			{ID: "me@example.com", Summary: "Me", Primary: true, AccessRole: "owner"},
			{ID: "team@group.calendar.google.com", Summary: "Team", AccessRole: "writer"},
		},
	}
}

func (b *memoryBackend) GetEvent(_ context.Context, _, eventID string) (*calendar.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev, ok := b.events[eventID]
	if !ok {
		return nil, &calendar.RemoteServiceError{Op: "get", StatusCode: http.StatusNotFound, Err: errors.New("not found")}
	}
	return &ev, nil
}

func (b *memoryBackend) ListEvents(_ context.Context, _ string, q calendar.ListQuery) ([]calendar.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []calendar.Event
	for _, ev := range b.events {
		if !ev.Start.Before(q.TimeMin) && ev.Start.Before(q.TimeMax) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (b *memoryBackend) InsertEvent(_ context.Context, calendarID string, ev *calendar.Event, _ calendar.SendUpdates) (*calendar.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	created := *ev
	created.ID = fmt.Sprintf("evt%d", b.nextID)
	created.Link = "https://calendar.google.com/event?eid=" + created.ID
	b.events[created.ID] = created
	b.inserted = append(b.inserted, calendarID)
	return &created, nil
}

func (b *memoryBackend) UpdateEvent(_ context.Context, _ string, ev *calendar.Event, _ calendar.SendUpdates) (*calendar.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[ev.ID] = *ev
	updated := *ev
	return &updated, nil
}

func (b *memoryBackend) DeleteEvent(_ context.Context, _, eventID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, eventID)
	return nil
}

func (b *memoryBackend) eventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func (b *memoryBackend) ListCalendars(context.Context) ([]calendar.CalendarInfo, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.calendars, nil
}

// commandProvider treats "create <title>" as a request to create a
// one-hour event tomorrow and answers everything else with an echo.
type commandProvider struct {
	err error
}

func (p *commandProvider) Name() string  { return "fake" }
func (p *commandProvider) Model() string { return "fake-model" }

func (p *commandProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	last := req.Messages[len(req.Messages)-1].Content

	title, ok := strings.CutPrefix(last, "create ")
	if !ok || req.Dispatcher == nil {
		return &llm.Response{Data: "echo: " + last, TotalTokens: 10}, nil
	}

	call := llm.ToolCall{Name: "create_event", Arguments: map[string]any{
		"summary":     title,
		"start_time":  "2030-01-02T09:00:00",
		"end_time":    "2030-01-02T10:00:00",
		"description": "",
		"location":    "",
		"attendees":   []any{},
	}}
	result := req.Dispatcher.Dispatch(ctx, call.Name, call.Arguments)
	return &llm.Response{
		Data:         result.Message,
		Cost:         0.001,
		TotalTokens:  30,
		ToolMessages: []llm.Message{llm.ToolMessage(call, result)},
		Executed:     []llm.ExecutedTool{{Call: call, Result: result}},
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestServerContext returns a context whose "default" and "other"
// accounts are backed by memory backends.
func newTestServerContext() (*ServerContext, map[string]*memoryBackend) {
	sc := NewServerContext(context.Background(), ContextConfig{Logger: discardLogger()})
	backends := map[string]*memoryBackend{
		"default": newMemoryBackend(),
		"other":   newMemoryBackend(),
	}
	for account, b := range backends {
		sc.SetBackendForAccount(account, b)
	}
	return sc, backends
}

func newTestSessionManager(p llm.Provider) (*SessionManager, map[string]*memoryBackend) {
	sc, backends := newTestServerContext()
	m := NewSessionManager(sc, SessionManagerConfig{Provider: p})
	return m, backends
}
