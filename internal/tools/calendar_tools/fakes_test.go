package calendar_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/server"
)

// memoryBackend is an in-memory server.CalendarBackend.
type memoryBackend struct {
	mu       sync.Mutex
	events   map[string]calendar.Event
	nextID   int
	inserted []string
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{events: make(map[string]calendar.Event)}
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

func (b *memoryBackend) ListCalendars(context.Context) ([]calendar.CalendarInfo, error) {
	return []calendar.CalendarInfo{
		{ID: "me@example.com", Summary: "Me", Primary: true, AccessRole: "owner"},
		{ID: "team@group.calendar.google.com", Summary: "Team", AccessRole: "writer"},
	}, nil
}

// rpcResponse is the subset of a JSON-RPC response the tests look at.
type rpcResponse struct {
	Result struct {
		Tools []struct {
			Name        string         `json:"name"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r rpcResponse) text() string {
	if len(r.Result.Content) == 0 {
		return ""
	}
	return r.Result.Content[0].Text
}

type testServer struct {
	mcp     *mcpserver.MCPServer
	backend *memoryBackend
	nextID  int
}

func newTestServer(t *testing.T, readOnly bool) *testServer {
	t.Helper()

	sc := server.NewServerContext(context.Background(), server.ContextConfig{Logger: slog.New(slog.DiscardHandler)})
	t.Cleanup(func() { _ = sc.Shutdown() })

	backend := newMemoryBackend()
	sc.SetBackendForAccount("default", backend)

	s := mcpserver.NewMCPServer("calassist", "test", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterCalendarTools(s, sc, NewClients(sc, ""), readOnly))

	return &testServer{mcp: s, backend: backend}
}

func (ts *testServer) rpc(t *testing.T, method string, params any) rpcResponse {
	t.Helper()
	ts.nextID++

	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      ts.nextID,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	out, err := json.Marshal(ts.mcp.HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Nil(t, resp.Error, "unexpected JSON-RPC error")
	return resp
}

func (ts *testServer) call(t *testing.T, name string, args map[string]any) rpcResponse {
	t.Helper()
	return ts.rpc(t, "tools/call", map[string]any{"name": name, "arguments": args})
}
