package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/server"
)

// ToolHandler is the mcp-go tool handler signature. It is an alias so
// wrapped handlers can be passed straight to AddTool.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with metrics and audit logging.
// It records tool invocation metrics and logs the invocation for audit purposes.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return InstrumentedToolHandlerWithOperation(toolName, "", sc, nil, handler)
}

// CalendarFunc reports the calendar an account's tools currently operate on.
type CalendarFunc func(account string) string

// InstrumentedToolHandlerWithOperation is like InstrumentedToolHandler but
// also tags the audit record with the calendar operation the tool performs.
// The calendar comes from calendarOf; when it is nil the calendar_id
// argument is used.
func InstrumentedToolHandlerWithOperation(toolName, operation string, sc *server.ServerContext, calendarOf CalendarFunc, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		start := time.Now()
		args := request.GetArguments()
		account := GetAccountFromArgs(ctx, args)
		invocation := instrumentation.NewToolInvocation(toolName).
			WithAccount(account).
			WithSpanContext(ctx)
		if operation != "" {
			calendarID, _ := args["calendar_id"].(string)
			if calendarOf != nil {
				calendarID = calendarOf(account)
			}
			invocation.WithCalendar(calendarID, operation)
		}
		if target, ok := args["event_id"].(string); ok {
			email, _ := args["email"].(string)
			invocation.WithTarget(target, email)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			invocation.CompleteWithError(errors.New(resultText(result)))
		default:
			invocation.CompleteSuccess()
		}

		metrics.RecordToolInvocationWithAccount(ctx, toolName, status, account, duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}

func resultText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			return text.Text
		}
	}
	return "tool returned an error"
}
