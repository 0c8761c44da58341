package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calassist/internal/tools"
)

func newTestGroq(t *testing.T, api *fakeAPI) Provider {
	t.Helper()
	srv := newFakeAPIServer(t, api)
	p, err := NewProvider(Config{
		Provider:    ProviderGroq,
		APIKey:      "gsk-test",
		BaseURL:     srv.URL + "/",
		Temperature: DefaultTemperature,
		HTTPClient:  srv.Client(),
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return p
}

const groqToolCalls = `{
  "id": "chatcmpl-1", "object": "chat.completion", "created": 1740000000, "model": "llama-3.1-8b-instant",
  "choices": [{
    "index": 0, "finish_reason": "tool_calls",
    "message": {"role": "assistant", "content": "",
      "tool_calls": [
        {"id": "call_1", "type": "function",
         "function": {"name": "list_events", "arguments": "{\"start_date\":\"2025-03-01\",\"end_date\":\"2025-03-07\",\"max_results\":5}"}},
        {"id": "call_2", "type": "function",
         "function": {"name": "delete_event", "arguments": "{\"event_id\":\"Standup\"}"}}
      ]}
  }],
  "usage": {"prompt_tokens": 500, "completion_tokens": 40, "total_tokens": 540}
}`

const groqFinal = `{
  "id": "chatcmpl-2", "object": "chat.completion", "created": 1740000001, "model": "llama-3.1-8b-instant",
  "choices": [{
    "index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": "  You had 2 events; Standup is deleted.  "}
  }],
  "usage": {"prompt_tokens": 700, "completion_tokens": 15, "total_tokens": 715}
}`

func TestGroq_MultipleToolCalls(t *testing.T) {
	api := &fakeAPI{responses: []string{groqToolCalls, groqFinal}}
	p := newTestGroq(t, api)

	d := &recordingDispatcher{result: tools.Result{Success: true, Message: "ok"}}
	resp, err := p.Complete(context.Background(), Request{
		Messages:   []Message{SystemMessage("sys"), UserMessage("Clean up my week")},
		Tools:      tools.Catalog(),
		Dispatcher: d,
	})
	require.NoError(t, err)

	require.Len(t, d.calls, 2)
	assert.Equal(t, "list_events", d.calls[0].Name)
	assert.EqualValues(t, 5, d.calls[0].Arguments["max_results"])
	assert.Equal(t, "delete_event", d.calls[1].Name)
	assert.Equal(t, "Standup", d.calls[1].Arguments["event_id"])

	assert.Equal(t, "You had 2 events; Standup is deleted.", resp.Data)
	assert.Equal(t, int64(500+40+700+15), resp.TotalTokens)
	assert.InDelta(t, (1200*0.05+55*0.08)/1e6, resp.Cost, 1e-12)
	require.Len(t, resp.ToolMessages, 2)
	assert.Empty(t, resp.ToolMessages[0].ToolCallID)

	require.Len(t, api.bodies, 2)
	assert.True(t, strings.HasSuffix(api.paths[0], "/chat/completions"), api.paths[0])

	first := api.bodies[0]
	assert.Equal(t, DefaultGroqModel, first["model"])
	assert.EqualValues(t, DefaultGroqMaxTokens, first["max_tokens"])
	require.Len(t, first["tools"], 4)
	fn := first["tools"].([]any)[1].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "list_events", fn["name"])
	assert.Equal(t, false, fn["parameters"].(map[string]any)["additionalProperties"])

	second := api.bodies[1]
	assert.NotContains(t, second, "tools")
	msgs := second["messages"].([]any)
	require.Len(t, msgs, 5)

	asst := msgs[2].(map[string]any)
	assert.Equal(t, "assistant", asst["role"])
	calls := asst["tool_calls"].([]any)
	require.Len(t, calls, 2)
	assert.Equal(t, "call_1", calls[0].(map[string]any)["id"])

	for i, id := range []string{"call_1", "call_2"} {
		tm := msgs[3+i].(map[string]any)
		assert.Equal(t, "tool", tm["role"])
		assert.Equal(t, id, tm["tool_call_id"])
		assert.Contains(t, tm["content"], `"success":true`)
	}
}

func TestGroq_ErrorsAreNormalized(t *testing.T) {
	api := &fakeAPI{
		status:    http.StatusTooManyRequests,
		responses: []string{`{"error":{"message":"Rate limit reached","type":"tokens","code":"rate_limit_exceeded"}}`},
	}
	p := newTestGroq(t, api)

	_, err := p.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ProviderGroq, pe.Provider)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Contains(t, err.Error(), "groq API error (HTTP 429)")

	var sdkErr *openai.Error
	assert.False(t, errors.As(err, &sdkErr))
}

func TestGroq_NoChoices(t *testing.T) {
	api := &fakeAPI{responses: []string{`{"id":"x","object":"chat.completion","choices":[],"usage":{}}`}}
	p := newTestGroq(t, api)

	_, err := p.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "response contained no choices", pe.Message)
}

func TestToGroqMessages_UnannouncedToolOutput(t *testing.T) {
	out := toGroqMessages([]Message{
		SystemMessage("sys"),
		UserMessage("hi"),
		AssistantMessage(""),
		{Role: RoleTool, Content: `{"success":false}`},
		{Role: RoleTool, Content: "orphan", ToolCallID: "never-announced"},
		AssistantMessage("done"),
	})

	require.Len(t, out, 5)
	assert.NotNil(t, out[0].OfSystem)
	assert.NotNil(t, out[1].OfUser)
	for _, m := range out[2:4] {
		require.NotNil(t, m.OfAssistant)
		assert.True(t, strings.HasPrefix(m.OfAssistant.Content.OfString.Value, "Tool response: "))
	}
	assert.Nil(t, out[2].OfTool)
	assert.Equal(t, "done", out[4].OfAssistant.Content.OfString.Value)
}
