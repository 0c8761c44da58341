package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/tools"
	"github.com/teemow/calassist/internal/tools/calendar_tools"
	"github.com/teemow/calassist/internal/tools/common"
)

// Resource URIs.
const (
	URIAccount = "calendar://account"
	URITools   = "calendar://tools"
)

// accountState is the body of URIAccount.
type accountState struct {
	Account            string                  `json:"account"`
	SelectedCalendarID string                  `json:"selected_calendar_id"`
	CachedEvents       int                     `json:"cached_events"`
	Calendars          []calendar.CalendarInfo `json:"calendars"`
}

// RegisterCalendarResources registers the calendar resources.
func RegisterCalendarResources(s *mcpserver.MCPServer, clients *calendar_tools.Clients) error {
	accountResource := mcp.NewResource(
		URIAccount,
		"Calendar Account",
		mcp.WithResourceDescription("Calendars of the current Google account and the one the tools operate on"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(accountResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAccount(ctx, request, clients)
	})

	toolsResource := mcp.NewResource(
		URITools,
		"Calendar Tool Catalog",
		mcp.WithResourceDescription("JSON Schemas of the calendar tools"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(toolsResource, func(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleTools(request)
	})

	return nil
}

// handleAccount reports the account's calendars and current selection.
// The account comes from the connection; stdio clients get "default".
func handleAccount(ctx context.Context, request mcp.ReadResourceRequest, clients *calendar_tools.Clients) ([]mcp.ResourceContents, error) {
	account := common.GetAccountFromArgs(ctx, nil)

	client, err := clients.ForAccount(account)
	if err != nil {
		return nil, err
	}
	backend, err := clients.Backend(account)
	if err != nil {
		return nil, err
	}

	calendars, err := backend.ListCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	return jsonContents(request.Params.URI, accountState{
		Account:            account,
		SelectedCalendarID: client.CalendarID(),
		CachedEvents:       client.Cache().Len(),
		Calendars:          calendars,
	})
}

func handleTools(request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	type toolSchema struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		InputSchema map[string]any `json:"input_schema"`
	}

	var out []toolSchema
	for _, def := range tools.Catalog() {
		out = append(out, toolSchema{
			Name:        def.Name.String(),
			Description: def.Description,
			InputSchema: def.Schema(),
		})
	}
	return jsonContents(request.Params.URI, out)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
