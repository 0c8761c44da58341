package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teemow/calassist/internal/llm"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/tools"
)

// ErrEmptyMessage is returned by Send for blank input.
var ErrEmptyMessage = errors.New("message cannot be empty")

const errorReplyPrefix = "Sorry, I encountered an error: "

const timestampLayout = "2006-01-02 15:04:05"

// SystemPrompt returns the instructions given to the model at now.
func SystemPrompt(now time.Time) string {
	return fmt.Sprintf(`You are a helpful assistant that helps users manage their Google Calendar.
The current date and time is %s.
When the user asks you to interact with their calendar, you should use the appropriate tool.
When creating events, always use ISO format for dates and times.
For dates without specific times, use YYYY-MM-DD format.
For times on specific dates, use YYYY-MM-DDThh:mm:ss format.

When listing events, use list_events tool.
When creating events, use create_event tool.
When adding attendees to events, use add_attendee tool.
When deleting events, use delete_event tool.

When adding attendees to events, you can refer to events by either:
1. Their exact event ID (from previous tool results)
2. Their exact event title/summary (case-insensitive)
Always use the most recent event information from your conversation history.`, now.Format(timestampLayout))
}

// IsExit reports whether text asks to end the conversation.
func IsExit(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "quit", "exit":
		return true
	}
	return false
}

// Reply is the outcome of one user turn.
type Reply struct {
	Text        string  `json:"text"`
	Cost        float64 `json:"cost"`
	TotalTokens int64   `json:"total_tokens"`
	// Failed is set when the provider failed and Text is the apology.
	Failed bool `json:"failed,omitempty"`

	Executed []llm.ExecutedTool `json:"-"`
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithClock overrides the clock used for the system prompt.
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) { c.now = now }
}

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(c *Conversation) { c.model = model }
}

// WithTemperature overrides the provider's default temperature.
func WithTemperature(t float64) Option {
	return func(c *Conversation) { c.temperature = &t }
}

// WithTools replaces the tool catalog offered to the model.
func WithTools(defs []tools.Definition) Option {
	return func(c *Conversation) { c.tools = defs }
}

// Conversation is the history of one chat session. Turns are serialised.
type Conversation struct {
	provider   llm.Provider
	dispatcher llm.ToolDispatcher
	logger     *slog.Logger

	now         func() time.Time
	model       string
	temperature *float64
	tools       []tools.Definition

	mu      sync.Mutex
	history []llm.Message
}

// New returns a conversation that sends turns to provider and runs tool
// calls through dispatcher.
func New(provider llm.Provider, dispatcher llm.ToolDispatcher, logger *slog.Logger, opts ...Option) *Conversation {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Conversation{
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
		tools:      tools.Catalog(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.history = []llm.Message{llm.SystemMessage(SystemPrompt(c.now()))}
	return c
}

// Send runs one user turn. Provider failures do not return an error; they
// are recorded in the history and returned as an apology with Failed set.
func (c *Conversation) Send(ctx context.Context, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.history[0] = llm.SystemMessage(SystemPrompt(c.now()))
	c.history = append(c.history, llm.UserMessage(text))

	req := llm.Request{
		Messages:    append([]llm.Message(nil), c.history...),
		Tools:       c.tools,
		Dispatcher:  c.dispatcher,
		Model:       c.model,
		Temperature: c.temperature,
	}

	start := time.Now()
	resp, err := c.provider.Complete(ctx, req)
	if err != nil {
		c.logger.Error("completion failed",
			slog.String(logging.KeyProvider, c.provider.Name()),
			slog.Duration(logging.KeyDuration, time.Since(start)),
			logging.Err(err))

		reply := &Reply{Text: errorReplyPrefix + err.Error(), Failed: true}
		if resp != nil {
			c.history = append(c.history, resp.ToolMessages...)
			reply.Cost = resp.Cost
			reply.TotalTokens = resp.TotalTokens
			reply.Executed = resp.Executed
		}
		c.history = append(c.history, llm.AssistantMessage(reply.Text))
		return reply, nil
	}

	c.history = append(c.history, resp.ToolMessages...)
	c.history = append(c.history, llm.AssistantMessage(resp.Data))

	c.logger.Debug("turn completed",
		slog.String(logging.KeyProvider, c.provider.Name()),
		slog.Int("tools_executed", len(resp.Executed)),
		slog.Int64("total_tokens", resp.TotalTokens),
		slog.Duration(logging.KeyDuration, time.Since(start)))

	return &Reply{
		Text:        resp.Data,
		Cost:        resp.Cost,
		TotalTokens: resp.TotalTokens,
		Executed:    resp.Executed,
	}, nil
}

// History returns a copy of the conversation so far.
func (c *Conversation) History() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Message(nil), c.history...)
}

// Reset drops everything but a fresh system prompt.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = []llm.Message{llm.SystemMessage(SystemPrompt(c.now()))}
}
