// Package instrumentation provides OpenTelemetry instrumentation for calassist.
//
// This package enables observability through:
//   - OpenTelemetry metrics for LLM completions, tool dispatch, Google Calendar calls and HTTP
//   - Distributed tracing for completion turns, tool calls and Google API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//   - Audit logging of every calendar tool dispatch
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of active chat sessions (Sessions group)
//
// LLM Metrics:
//   - llm_completions_total: Counter of completion turns by provider, model, status
//   - llm_completion_duration_seconds: Histogram of completion turn durations
//   - llm_tokens_total: Counter of tokens by provider, model, direction (LLMCost group)
//   - llm_cost_usd_total: Accumulated cost in USD by provider and model (LLMCost group)
//
// Tool Metrics:
//   - tool_dispatch_total / tool_dispatch_duration_seconds: every calendar tool dispatch
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds: calls arriving over MCP
//   - event_cache_lookups_total: event cache lookups by key form and result (EventCache group)
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, calendar_kind, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// # Tracing
//
// Spans are created for:
//   - Completion turns (llm.<provider>.complete)
//   - Tool dispatches (tool.<name>)
//   - Google API calls (google.calendar.<operation>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: calassist)
//   - CALASSIST_METRICS_LLM_COST, CALASSIST_METRICS_EVENT_CACHE, CALASSIST_METRICS_SESSIONS:
//     create the optional metric groups (default: true)
//
// The telemetry resource names the LLM provider and model in use as
// calassist.llm.provider and calassist.llm.model.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordLLMCompletion(ctx, "groq", "llama-3.1-8b-instant", "success", 812, 96, 0.00005, time.Since(start))
//	recorder.RecordGoogleAPIOperation(ctx, "calendar", "list", "primary", "success", time.Since(start))
package instrumentation
