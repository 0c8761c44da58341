package llm

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/tools"
)

// callParams are the resolved per-request settings.
type callParams struct {
	model       string
	temperature float64
	maxTokens   int64
}

// reply is one backend answer in provider-neutral form.
type reply struct {
	Text         string
	Calls        []ToolCall
	InputTokens  int64
	OutputTokens int64
}

// roundTripper issues a single completion request. defs is nil on the final
// round. Errors are *ProviderError.
type roundTripper interface {
	roundTrip(ctx context.Context, msgs []Message, defs []tools.Definition, p callParams) (*reply, error)
}

// flow holds what both providers share: defaults, pricing and telemetry.
type flow struct {
	name     string
	defaults callParams
	prices   PriceTable
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

type usage struct {
	input, output int64
	cost          float64
	roundTrips    int
}

func (f *flow) params(req Request) callParams {
	p := f.defaults
	if req.Model != "" {
		p.model = req.Model
	}
	if req.Temperature != nil {
		p.temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		p.maxTokens = req.MaxTokens
	}
	return p
}

func (f *flow) account(u *usage, model string, r *reply) {
	u.input += r.InputTokens
	u.output += r.OutputTokens
	u.roundTrips++
	cost, ok := f.prices.Cost(model, r.InputTokens, r.OutputTokens)
	if !ok {
		f.logger.Warn("no price known for model, reporting zero cost", slog.String(logging.KeyModel, model))
	}
	u.cost += cost
}

// complete runs one turn: a primary request with tools, then, when the model
// asked for tools, dispatch and a final request without tools.
func (f *flow) complete(ctx context.Context, rt roundTripper, req Request) (*Response, error) {
	p := f.params(req)

	ctx, span := instrumentation.StartLLMSpan(ctx, f.name, p.model)
	defer span.End()

	start := time.Now()
	resp, u, err := f.run(ctx, rt, req, p)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		span.SetAttributes(
			attribute.Int64(instrumentation.SpanAttrTotalTokens, resp.TotalTokens),
			attribute.Int(instrumentation.SpanAttrRoundTrips, resp.RoundTrips),
		)
		instrumentation.SetSpanSuccess(span)
	}
	f.metrics.RecordLLMCompletion(ctx, f.name, p.model, status, u.input, u.output, u.cost, time.Since(start))

	return resp, err
}

func (f *flow) run(ctx context.Context, rt roundTripper, req Request, p callParams) (*Response, usage, error) {
	var u usage

	primary, err := rt.roundTrip(ctx, req.Messages, req.Tools, p)
	if err != nil {
		return nil, u, err
	}
	f.account(&u, p.model, primary)

	if req.Dispatcher == nil || len(req.Tools) == 0 {
		return f.respond(p.model, primary.Text, u), u, nil
	}

	calls := primary.Calls
	if len(calls) == 0 {
		calls = scanToolCalls(primary.Text, req.Tools)
		if len(calls) > 0 {
			f.logger.Debug("tool call recovered from reply text", slog.Int("calls", len(calls)))
		}
	}
	if len(calls) == 0 {
		return f.respond(p.model, primary.Text, u), u, nil
	}

	executed, err := dispatchAll(ctx, req.Dispatcher, calls)
	if err != nil {
		f.logger.Error("tool dispatch failed, returning primary response", logging.Err(err))
		return f.respond(p.model, primary.Text, u), u, nil
	}

	working := slices.Clone(req.Messages)
	working = append(working, Message{Role: RoleAssistant, Content: primary.Text, ToolCalls: calls})
	toolMessages := make([]Message, 0, len(executed))
	for _, e := range executed {
		msg := ToolMessage(e.Call, e.Result)
		working = append(working, msg)

		// Persisted history has no matching native call, so drop the ID.
		msg.ToolCallID = ""
		toolMessages = append(toolMessages, msg)

		f.logger.Info("tool executed",
			logging.Tool(e.Call.Name),
			slog.Bool("success", e.Result.Success))
	}

	final, err := rt.roundTrip(ctx, working, nil, p)
	if err != nil {
		// The tools already ran; hand their results back with the error.
		partial := f.respond(p.model, "", u)
		partial.ToolMessages = toolMessages
		partial.Executed = executed
		return partial, u, err
	}
	f.account(&u, p.model, final)

	resp := f.respond(p.model, final.Text, u)
	resp.ToolMessages = toolMessages
	resp.Executed = executed
	return resp, u, nil
}

func (f *flow) respond(model, text string, u usage) *Response {
	return &Response{
		Data:         text,
		Cost:         u.cost,
		TotalTokens:  u.input + u.output,
		Model:        model,
		InputTokens:  u.input,
		OutputTokens: u.output,
		RoundTrips:   u.roundTrips,
	}
}

// dispatchAll runs every call in order. A panicking dispatcher aborts the
// batch with an error.
func dispatchAll(ctx context.Context, d ToolDispatcher, calls []ToolCall) (executed []ExecutedTool, err error) {
	defer func() {
		if r := recover(); r != nil {
			executed = nil
			err = fmt.Errorf("tool dispatcher panicked: %v", r)
		}
	}()

	executed = make([]ExecutedTool, 0, len(calls))
	for _, c := range calls {
		args := c.Arguments
		if args == nil {
			args = map[string]any{}
		}
		executed = append(executed, ExecutedTool{Call: c, Result: d.Dispatch(ctx, c.Name, args)})
	}
	return executed, nil
}
