package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/teemow/calassist/internal/tools"
)

const (
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-3-7-sonnet-20250219"
	// DefaultAnthropicMaxTokens is the default completion budget.
	DefaultAnthropicMaxTokens = 1000
)

// AnthropicProvider completes conversations with the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	flow   *flow
}

var _ Provider = (*AnthropicProvider)(nil)

func newAnthropicProvider(cfg Config, f *flow) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		flow:   f,
	}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

// Model implements Provider.
func (p *AnthropicProvider) Model() string { return p.flow.defaults.model }

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	return p.flow.complete(ctx, p, req)
}

func (p *AnthropicProvider) roundTrip(ctx context.Context, msgs []Message, defs []tools.Definition, cp callParams) (*reply, error) {
	system, messages := toAnthropicMessages(msgs)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(cp.model),
		MaxTokens:   cp.maxTokens,
		Messages:    messages,
		Temperature: anthropic.Float(cp.temperature),
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(defs) > 0 {
		params.Tools = toAnthropicTools(defs)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, anthropicError(err)
	}
	return fromAnthropicMessage(resp), nil
}

func anthropicError(err error) *ProviderError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return newProviderError(ProviderAnthropic, apiErr.StatusCode, err)
	}
	return newProviderError(ProviderAnthropic, 0, err)
}

func toAnthropicTools(defs []tools.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(defs))
	for i, d := range defs {
		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        string(d.Name),
				Description: anthropic.String(d.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: d.SchemaProperties(),
					Required:   d.Required,
					ExtraFields: map[string]any{
						"additionalProperties": false,
					},
				},
			},
		}
	}
	return out
}

type anthropicTurn struct {
	role  Role
	parts []string
}

// toAnthropicMessages lifts system messages into the system prompt and maps
// the rest onto alternating user and assistant turns. Tool output becomes
// assistant text prefixed with "Tool response: " and tool calls are dropped,
// since the final round is sent without tools. Consecutive turns of the
// same role are merged and empty ones skipped.
func toAnthropicMessages(msgs []Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	var turns []anthropicTurn

	add := func(role Role, text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].parts = append(turns[n-1].parts, text)
			return
		}
		turns = append(turns, anthropicTurn{role: role, parts: []string{text}})
	}

	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			if strings.TrimSpace(m.Content) != "" {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
			}
		case RoleUser:
			add(RoleUser, m.Content)
		case RoleAssistant:
			add(RoleAssistant, m.Content)
		case RoleTool:
			add(RoleAssistant, toolResponsePrefix+m.Content)
		}
	}

	out := make([]anthropic.MessageParam, 0, len(turns))
	for i, t := range turns {
		text := strings.Join(t.parts, "\n\n")
		if t.role == RoleUser {
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			continue
		}
		// A final assistant turn is a prefill and must not end in whitespace.
		if i == len(turns)-1 {
			text = strings.TrimRight(text, " \t\r\n")
		}
		out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
	}
	return system, out
}

func fromAnthropicMessage(resp *anthropic.Message) *reply {
	r := &reply{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	var text []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text = append(text, block.AsText().Text)
		case "tool_use":
			tu := block.AsToolUse()
			r.Calls = append(r.Calls, ToolCall{
				ID:        tu.ID,
				Name:      tu.Name,
				Arguments: decodeArguments(json.RawMessage(tu.Input)),
			})
		}
	}
	r.Text = strings.Join(text, "\n")
	return r
}
