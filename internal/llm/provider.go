package llm

import (
	"context"
	"encoding/json"

	"github.com/teemow/calassist/internal/tools"
)

// Provider completes a conversation, running at most one batch of tool calls.
type Provider interface {
	// Name returns the provider name, e.g. "anthropic".
	Name() string
	// Model returns the model used when a Request does not name one.
	Model() string
	// Complete runs one turn. When the final request fails after tools ran,
	// the error comes with a Response holding only ToolMessages, Executed
	// and the usage so far.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ToolDispatcher executes a tool call. *tools.Dispatcher implements it.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) tools.Result
}

// DispatcherFunc adapts a function to ToolDispatcher.
type DispatcherFunc func(ctx context.Context, name string, args map[string]any) tools.Result

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, name string, args map[string]any) tools.Result {
	return f(ctx, name, args)
}

// Request is one completion turn.
type Request struct {
	Messages []Message
	// Tools are offered on the first round trip. Without Tools or a
	// Dispatcher the completion is a single round trip.
	Tools      []tools.Definition
	Dispatcher ToolDispatcher

	// Zero values fall back to the provider defaults.
	Model       string
	Temperature *float64
	MaxTokens   int64
}

// Response is the provider-independent result of a completion.
type Response struct {
	Data        string  `json:"data"`
	Cost        float64 `json:"cost"`
	TotalTokens int64   `json:"total_tokens"`

	Model        string `json:"-"`
	InputTokens  int64  `json:"-"`
	OutputTokens int64  `json:"-"`
	RoundTrips   int    `json:"-"`

	// ToolMessages holds one tool message per executed call, ready to be
	// appended to the conversation history.
	ToolMessages []Message      `json:"-"`
	Executed     []ExecutedTool `json:"-"`
}

// JSON renders the {data, cost, total_tokens} envelope.
func (r *Response) JSON() string {
	b, _ := json.Marshal(r)
	return string(b)
}
