package calendar_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/server"
	"github.com/teemow/calassist/internal/tools/common"
)

// RegisterCalendarListTools registers calendar list tools with the MCP server
func RegisterCalendarListTools(s *mcpserver.MCPServer, sc *server.ServerContext, clients *Clients) error {
	listCalendarsTool := mcp.NewTool("list_calendars",
		mcp.WithDescription("List all calendars accessible to the user"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(listCalendarsTool, common.InstrumentedToolHandlerWithOperation(
		"list_calendars", instrumentation.OperationList, sc, nil,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCalendars(ctx, request, clients)
		}))

	selectCalendarTool := mcp.NewTool("select_calendar",
		mcp.WithDescription("Select the calendar that create_event, list_events, add_attendee and delete_event operate on"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("calendar_id",
			mcp.Required(),
			mcp.Description("Calendar ID (use 'primary' for primary calendar)"),
		),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(selectCalendarTool, common.InstrumentedToolHandler(
		"select_calendar", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSelectCalendar(ctx, request, clients)
		}))

	return nil
}

func handleListCalendars(ctx context.Context, request mcp.CallToolRequest, clients *Clients) (*mcp.CallToolResult, error) {
	account := common.GetAccountFromArgs(ctx, request.GetArguments())

	backend, err := clients.Backend(account)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	calendars, err := backend.ListCalendars(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error listing calendars from Google Calendar: %v", err)), nil
	}

	if len(calendars) == 0 {
		return mcp.NewToolResultText("No calendars found"), nil
	}

	data, err := json.MarshalIndent(calendars, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode calendars: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleSelectCalendar(ctx context.Context, request mcp.CallToolRequest, clients *Clients) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, args)

	calendarID, _ := args["calendar_id"].(string)
	calendarID = strings.TrimSpace(calendarID)
	if calendarID == "" {
		return mcp.NewToolResultError("calendar_id is required"), nil
	}

	if err := clients.SelectCalendar(account, calendarID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Selected calendar %s", calendarID)), nil
}
