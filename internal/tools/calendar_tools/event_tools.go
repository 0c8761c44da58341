package calendar_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/server"
	"github.com/teemow/calassist/internal/tools"
	"github.com/teemow/calassist/internal/tools/common"
)

var accountProperty = map[string]any{
	"type":        "string",
	"description": "Account name (default: 'default'). Used to manage multiple Google accounts.",
}

// RegisterEventTools registers the catalog tools with the MCP server.
func RegisterEventTools(s *mcpserver.MCPServer, sc *server.ServerContext, clients *Clients, readOnly bool) error {
	for _, def := range tools.Catalog() {
		if readOnly && !isReadOnly(def.Name) {
			continue
		}

		tool, err := eventTool(def)
		if err != nil {
			return err
		}

		name := def.Name
		s.AddTool(tool, common.InstrumentedToolHandlerWithOperation(
			name.String(), operationOf(name), sc, clients.SelectedCalendar,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleCatalogTool(ctx, request, sc, clients, name)
			}))
	}
	return nil
}

// eventTool builds the MCP tool for a catalog definition. The schema is the
// catalog schema plus the optional account selector.
func eventTool(def tools.Definition) (mcp.Tool, error) {
	schema := def.Schema()
	props := schema["properties"].(map[string]any)
	props["account"] = accountProperty

	raw, err := json.Marshal(schema)
	if err != nil {
		return mcp.Tool{}, fmt.Errorf("failed to encode schema for %s: %w", def.Name, err)
	}

	tool := mcp.NewToolWithRawSchema(def.Name.String(), def.Description, raw)
	readOnlyHint := isReadOnly(def.Name)
	tool.Annotations = mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(readOnlyHint),
		DestructiveHint: mcp.ToBoolPtr(def.Name == tools.DeleteEvent),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}
	return tool, nil
}

func handleCatalogTool(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, clients *Clients, name tools.Name) (*mcp.CallToolResult, error) {
	args := maps.Clone(request.GetArguments())
	account := common.GetAccountFromArgs(ctx, args)
	delete(args, "account")
	if args == nil {
		args = map[string]any{}
	}

	client, err := clients.ForAccount(account)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	dispatcher := tools.NewDispatcher(client, clients.logger(),
		tools.WithMetrics(sc.Metrics()),
		tools.WithAccount(account),
	)
	res := dispatcher.Dispatch(ctx, name.String(), args)

	if !res.Success {
		return mcp.NewToolResultError(res.JSON()), nil
	}
	return mcp.NewToolResultText(res.JSON()), nil
}

func isReadOnly(name tools.Name) bool {
	return name == tools.ListEvents
}

func operationOf(name tools.Name) string {
	switch name {
	case tools.CreateEvent:
		return instrumentation.OperationCreate
	case tools.ListEvents:
		return instrumentation.OperationList
	case tools.AddAttendee:
		return instrumentation.OperationUpdate
	case tools.DeleteEvent:
		return instrumentation.OperationDelete
	}
	return ""
}
