package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrAccount   = "account"
	attrProvider  = "provider"
	attrModel     = "model"
	attrDirection = "direction"
	attrCache     = "cache"

	attrCalendarKind = "calendar_kind"
)

// Token directions for llm_tokens_total.
const (
	TokenDirectionInput  = "input"
	TokenDirectionOutput = "output"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthTokenRefreshTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// LLM metrics
	llmCompletionsTotal   metric.Int64Counter
	llmCompletionDuration metric.Float64Histogram
	llmTokensTotal        metric.Int64Counter
	llmCostTotal          metric.Float64Counter

	// Tool dispatch metrics (every tool call, whichever surface issued it)
	toolDispatchTotal    metric.Int64Counter
	toolDispatchDuration metric.Float64Histogram

	// Event cache metrics
	cacheLookupsTotal metric.Int64Counter

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// MetricsOptions selects labels and optional metric groups.
type MetricsOptions struct {
	// DetailedLabels adds high-cardinality labels such as the account name.
	DetailedLabels bool

	// Groups picks which optional metric families are created.
	Groups MetricGroups
}

// NewMetrics creates the instruments on meter. Instruments of a disabled
// group are left nil and their Record methods do nothing.
func NewMetrics(meter metric.Meter, opts MetricsOptions) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: opts.DetailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	if opts.Groups.Sessions {
		m.activeSessions, err = meter.Int64UpDownCounter(
			"active_sessions",
			metric.WithDescription("Number of active chat sessions"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
		}
	}

	// Google API Metrics
	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	// OAuth Metrics
	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	// LLM Metrics
	m.llmCompletionsTotal, err = meter.Int64Counter(
		"llm_completions_total",
		metric.WithDescription("Total number of LLM completion turns"),
		metric.WithUnit("{completion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_completions_total counter: %w", err)
	}

	m.llmCompletionDuration, err = meter.Float64Histogram(
		"llm_completion_duration_seconds",
		metric.WithDescription("LLM completion turn duration in seconds, including tool execution"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_completion_duration_seconds histogram: %w", err)
	}

	if opts.Groups.LLMCost {
		m.llmTokensTotal, err = meter.Int64Counter(
			"llm_tokens_total",
			metric.WithDescription("Total number of LLM tokens by direction"),
			metric.WithUnit("{token}"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create llm_tokens_total counter: %w", err)
		}

		m.llmCostTotal, err = meter.Float64Counter(
			"llm_cost_usd_total",
			metric.WithDescription("Accumulated LLM cost in USD"),
			metric.WithUnit("USD"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create llm_cost_usd_total counter: %w", err)
		}
	}

	// Tool dispatch Metrics
	m.toolDispatchTotal, err = meter.Int64Counter(
		"tool_dispatch_total",
		metric.WithDescription("Total number of calendar tool dispatches"),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_dispatch_total counter: %w", err)
	}

	m.toolDispatchDuration, err = meter.Float64Histogram(
		"tool_dispatch_duration_seconds",
		metric.WithDescription("Calendar tool dispatch duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_dispatch_duration_seconds histogram: %w", err)
	}

	if opts.Groups.EventCache {
		m.cacheLookupsTotal, err = meter.Int64Counter(
			"event_cache_lookups_total",
			metric.WithDescription("Total number of event cache lookups by result"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create event_cache_lookups_total counter: %w", err)
		}
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGoogleAPIOperation records a Google API call.
//
// Parameters:
//   - service: Google service name (calendar)
//   - operation: Operation type (list, get, create, update, delete)
//   - calendarID: the calendar addressed, reduced to its CalendarKind; empty for account-wide calls
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, calendarID, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrCalendarKind, CalendarKind(calendarID)),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "failure", "expired"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrResult, result),
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "create_event", "list_events")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocationWithAccount records an MCP tool invocation with account info.
// The account label is only attached when detailedLabels is enabled.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordLLMCompletion records one completion turn (one or two round trips).
//
// Parameters:
//   - provider: "anthropic" or "groq"
//   - model: exact model string sent to the provider
//   - status: Result status ("success" or "error")
//   - inputTokens, outputTokens: usage summed over the turn
//   - cost: USD cost of the turn
//   - duration: wall time including tool execution
func (m *Metrics) RecordLLMCompletion(ctx context.Context, provider, model, status string, inputTokens, outputTokens int64, cost float64, duration time.Duration) {
	if m == nil || m.llmCompletionsTotal == nil || m.llmCompletionDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrModel, model),
		attribute.String(attrStatus, status),
	}

	m.llmCompletionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.llmCompletionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if m.llmTokensTotal != nil {
		base := []attribute.KeyValue{
			attribute.String(attrProvider, provider),
			attribute.String(attrModel, model),
		}
		if inputTokens > 0 {
			m.llmTokensTotal.Add(ctx, inputTokens, metric.WithAttributes(append(base, attribute.String(attrDirection, TokenDirectionInput))...))
		}
		if outputTokens > 0 {
			m.llmTokensTotal.Add(ctx, outputTokens, metric.WithAttributes(append(base, attribute.String(attrDirection, TokenDirectionOutput))...))
		}
	}

	if m.llmCostTotal != nil && cost > 0 {
		m.llmCostTotal.Add(ctx, cost, metric.WithAttributes(
			attribute.String(attrProvider, provider),
			attribute.String(attrModel, model),
		))
	}
}

// RecordToolDispatch records a calendar tool dispatch with its outcome.
func (m *Metrics) RecordToolDispatch(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolDispatchTotal == nil || m.toolDispatchDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolDispatchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDispatchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCacheLookup records an event cache lookup.
// cache is the key form ("id" or "title"), result is "hit" or "miss".
func (m *Metrics) RecordCacheLookup(ctx context.Context, cache, result string) {
	if m == nil || m.cacheLookupsTotal == nil {
		return // Instrumentation not initialized
	}

	m.cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrCache, cache),
		attribute.String(attrResult, result),
	))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, -1)
}
