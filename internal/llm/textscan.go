package llm

import (
	"encoding/json"
	"strings"

	"github.com/teemow/calassist/internal/tools"
)

// textCall is the shape models without native tool support tend to emit.
type textCall struct {
	Name       string          `json:"name"`
	Tool       string          `json:"tool"`
	Arguments  json.RawMessage `json:"arguments"`
	Parameters json.RawMessage `json:"parameters"`
}

// scanToolCalls recovers tool calls written into plain text as JSON objects
// such as {"name": "create_event", "arguments": {...}}. Only tools in offered
// are recognised. This is a best-effort fallback for replies that carry no
// structured tool calls.
func scanToolCalls(text string, offered []tools.Definition) []ToolCall {
	if len(offered) == 0 || !strings.Contains(text, "{") {
		return nil
	}
	known := make(map[string]bool, len(offered))
	for _, d := range offered {
		known[string(d.Name)] = true
	}

	var calls []ToolCall
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var c textCall
		if err := dec.Decode(&c); err != nil {
			continue
		}

		name := c.Name
		if name == "" {
			name = c.Tool
		}
		if !known[name] {
			continue
		}

		raw := c.Arguments
		if len(raw) == 0 {
			raw = c.Parameters
		}
		calls = append(calls, ToolCall{Name: name, Arguments: decodeArguments(raw)})
		i += int(dec.InputOffset()) - 1
	}
	return calls
}

// decodeArguments accepts an object or a JSON string holding an object.
// Anything else yields an empty argument map.
func decodeArguments(raw []byte) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = []byte(s)
	}
	if err := json.Unmarshal(raw, &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}
