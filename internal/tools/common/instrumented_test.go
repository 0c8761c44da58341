package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/server"
)

func newAuditedContext(t *testing.T) (*server.ServerContext, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	sc := server.NewServerContext(context.Background(), server.ContextConfig{
		Audit:  audit,
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, &buf
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_NoInstrumentation(t *testing.T) {
	sc := server.NewServerContext(context.Background(), server.ContextConfig{})
	defer sc.Shutdown()

	called := false
	wrapped := InstrumentedToolHandler("list_events", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("ok"), nil
	})

	result, err := wrapped(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, called)
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc, buf := newAuditedContext(t)

	wrapped := InstrumentedToolHandlerWithOperation("delete_event", instrumentation.OperationDelete, sc, nil,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("deleted"), nil
		})

	_, err := wrapped(context.Background(), callRequest(map[string]any{"account": "work", "event_id": "abc"}))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "tool_executed")
	assert.Contains(t, out, "tool=delete_event")
	assert.Contains(t, out, "account=work")
	assert.Contains(t, out, "operation=delete")
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	sc, buf := newAuditedContext(t)

	wrapped := InstrumentedToolHandler("add_attendee", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("Event not found"), nil
	})

	result, err := wrapped(context.Background(), callRequest(map[string]any{"event_id": "nope", "email": "a@example.com"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	out := buf.String()
	assert.Contains(t, out, "tool_failed")
	assert.Contains(t, out, "Event not found")
	assert.Contains(t, out, "attendee_domain=example.com")
	assert.NotContains(t, out, "a@example.com")
}

func TestInstrumentedToolHandler_HandlerError(t *testing.T) {
	sc, buf := newAuditedContext(t)

	boom := errors.New("boom")
	wrapped := InstrumentedToolHandler("list_events", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, boom
	})

	_, err := wrapped(context.Background(), callRequest(nil))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "error=boom")
}

func TestInstrumentedToolHandler_CalendarFromSelection(t *testing.T) {
	sc, buf := newAuditedContext(t)

	var asked string
	calendarOf := func(account string) string {
		asked = account
		return "team@group.calendar.google.com"
	}
	wrapped := InstrumentedToolHandlerWithOperation("create_event", instrumentation.OperationCreate, sc, calendarOf,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("created"), nil
		})

	_, err := wrapped(context.Background(), callRequest(map[string]any{"account": "work", "summary": "Standup"}))
	require.NoError(t, err)

	assert.Equal(t, "work", asked)
	assert.Contains(t, buf.String(), "calendar_id=team@group.calendar.google.com")
}
