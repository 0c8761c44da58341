package llm

import (
	"encoding/json"

	"github.com/teemow/calassist/internal/tools"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// toolResponsePrefix marks tool output replayed as assistant text for
// backends that cannot take it natively.
const toolResponsePrefix = "Tool response: "

// Message is one entry of a conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolName is the tool that produced a tool message.
	ToolName string `json:"tool_name,omitempty"`
	// ToolCallID links a tool message to the native call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolCalls are the calls an assistant message requested.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a model's request to run a tool.
// ID is empty for calls recovered from plain text.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ExecutedTool pairs a tool call with its outcome.
type ExecutedTool struct {
	Call   ToolCall
	Result tools.Result
}

// SystemMessage returns a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage returns the tool message recording result for call.
func ToolMessage(call ToolCall, result tools.Result) Message {
	return Message{
		Role:       RoleTool,
		Content:    result.JSON(),
		ToolName:   call.Name,
		ToolCallID: call.ID,
	}
}

// hasNativeCalls reports whether every call carries a backend call ID.
func hasNativeCalls(calls []ToolCall) bool {
	if len(calls) == 0 {
		return false
	}
	for _, c := range calls {
		if c.ID == "" {
			return false
		}
	}
	return true
}

// encodeArguments renders call arguments as a JSON object.
func encodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}
