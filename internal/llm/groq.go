package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/teemow/calassist/internal/tools"
)

const (
	// DefaultGroqModel is used when no model is configured.
	DefaultGroqModel = "llama-3.1-8b-instant"
	// DefaultGroqMaxTokens is the default completion budget.
	DefaultGroqMaxTokens = 1024
	// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1/"
)

// GroqProvider completes conversations with Groq through its
// OpenAI-compatible chat completions API.
type GroqProvider struct {
	client openai.Client
	flow   *flow
}

var _ Provider = (*GroqProvider)(nil)

func newGroqProvider(cfg Config, f *flow) *GroqProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &GroqProvider{
		client: openai.NewClient(opts...),
		flow:   f,
	}
}

// Name implements Provider.
func (p *GroqProvider) Name() string { return ProviderGroq }

// Model implements Provider.
func (p *GroqProvider) Model() string { return p.flow.defaults.model }

// Complete implements Provider.
func (p *GroqProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	return p.flow.complete(ctx, p, req)
}

func (p *GroqProvider) roundTrip(ctx context.Context, msgs []Message, defs []tools.Definition, cp callParams) (*reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(cp.model),
		Messages:    toGroqMessages(msgs),
		Temperature: openai.Float(cp.temperature),
		MaxTokens:   openai.Int(cp.maxTokens),
	}
	if len(defs) > 0 {
		params.Tools = toGroqTools(defs)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, groqError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: ProviderGroq, Message: "response contained no choices"}
	}
	return fromGroqCompletion(resp), nil
}

func groqError(err error) *ProviderError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return newProviderError(ProviderGroq, apiErr.StatusCode, err)
	}
	return newProviderError(ProviderGroq, 0, err)
}

func toGroqTools(defs []tools.Definition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(defs))
	for i, d := range defs {
		out[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        string(d.Name),
				Description: openai.String(d.Description),
				Parameters:  shared.FunctionParameters(d.Schema()),
			},
		}
	}
	return out
}

// toGroqMessages maps history onto chat completion messages. Tool messages
// answering a native call announced earlier in msgs are sent as tool
// messages; any other tool output is replayed as assistant text prefixed with
// "Tool response: ".
func toGroqMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	announced := make(map[string]bool)

	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			if hasNativeCalls(m.ToolCalls) {
				asst.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
				for i, tc := range m.ToolCalls {
					announced[tc.ID] = true
					asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: encodeArguments(tc.Arguments),
						},
					}
				}
			} else if m.Content == "" {
				continue
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		case RoleTool:
			if m.ToolCallID != "" && announced[m.ToolCallID] {
				out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			asst.Content.OfString = openai.String(toolResponsePrefix + m.Content)
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}

func fromGroqCompletion(resp *openai.ChatCompletion) *reply {
	msg := resp.Choices[0].Message
	r := &reply{
		Text:         strings.TrimSpace(msg.Content),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	for _, tc := range msg.ToolCalls {
		r.Calls = append(r.Calls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: decodeArguments([]byte(tc.Function.Arguments)),
		})
	}
	return r
}
