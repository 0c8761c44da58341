package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestProvider(t *testing.T, detailed bool) (context.Context, *Provider) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
		DetailedLabels:  detailed,
		Metrics:         AllMetricGroups(),
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	return ctx, provider
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	ctx, provider := newTestProvider(t, false)

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/api/v1/sessions", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/api/v1/sessions/{id}/messages", 500, 50*time.Millisecond)
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	ctx, provider := newTestProvider(t, false)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationList, "primary", StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationCreate, "team@group.calendar.google.com", StatusError, 500*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationList, "", StatusSuccess, 100*time.Millisecond)
}

func TestMetrics_RecordOAuthTokenRefresh(t *testing.T) {
	ctx, provider := newTestProvider(t, false)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	metrics.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)
	metrics.RecordOAuthTokenRefresh(ctx, OAuthResultExpired)
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	ctx, provider := newTestProvider(t, false)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordToolInvocation(ctx, "list_events", StatusSuccess, 100*time.Millisecond)
	metrics.RecordToolInvocation(ctx, "create_event", StatusError, 500*time.Millisecond)
}

func TestMetrics_RecordToolInvocationWithAccount(t *testing.T) {
	for _, detailed := range []bool{false, true} {
		ctx, provider := newTestProvider(t, detailed)

		// Should not panic - account is only attached with detailed labels
		provider.Metrics().RecordToolInvocationWithAccount(ctx, "delete_event", StatusSuccess, "work", 100*time.Millisecond)
	}
}

func TestMetrics_RecordLLMCompletion(t *testing.T) {
	ctx, provider := newTestProvider(t, false)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordLLMCompletion(ctx, "anthropic", "claude-3-7-sonnet-20250219", StatusSuccess, 1200, 300, 0.0081, 2*time.Second)
	metrics.RecordLLMCompletion(ctx, "groq", "llama-3.1-8b-instant", StatusError, 0, 0, 0, 300*time.Millisecond)
}

func TestMetrics_RecordToolDispatch(t *testing.T) {
	ctx, provider := newTestProvider(t, false)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordToolDispatch(ctx, "add_attendee", StatusSuccess, 150*time.Millisecond)
	metrics.RecordToolDispatch(ctx, "unknown", StatusError, time.Millisecond)
}

func TestMetrics_RecordCacheLookup(t *testing.T) {
	ctx, provider := newTestProvider(t, false)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordCacheLookup(ctx, CacheKeyID, CacheResultHit)
	metrics.RecordCacheLookup(ctx, CacheKeyTitle, CacheResultMiss)
}

func TestMetrics_ActiveSessions(t *testing.T) {
	ctx, provider := newTestProvider(t, false)
	metrics := provider.Metrics()

	// Should not panic
	metrics.IncrementActiveSessions(ctx)
	metrics.IncrementActiveSessions(ctx)
	metrics.DecrementActiveSessions(ctx)
}

func TestMetrics_NoOp_WhenDisabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil even when disabled")
	}

	// All these should not panic even with nil underlying metrics
	metrics.RecordHTTPRequest(ctx, "GET", "/healthz", 200, 100*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationList, "primary", StatusSuccess, 200*time.Millisecond)
	metrics.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	metrics.RecordToolInvocation(ctx, "test_tool", StatusSuccess, 100*time.Millisecond)
	metrics.RecordToolInvocationWithAccount(ctx, "test_tool", StatusSuccess, "work", 100*time.Millisecond)
	metrics.RecordLLMCompletion(ctx, "groq", "llama3-8b-8192", StatusSuccess, 10, 10, 0.1, time.Second)
	metrics.RecordToolDispatch(ctx, "list_events", StatusSuccess, time.Millisecond)
	metrics.RecordCacheLookup(ctx, CacheKeyID, CacheResultHit)
	metrics.IncrementActiveSessions(ctx)
	metrics.DecrementActiveSessions(ctx)
}

func TestMetrics_NilReceiver(t *testing.T) {
	var metrics *Metrics
	ctx := context.Background()

	// A nil recorder is a valid no-op
	metrics.RecordLLMCompletion(ctx, "anthropic", "m", StatusSuccess, 1, 1, 1, time.Second)
	metrics.RecordToolDispatch(ctx, "create_event", StatusSuccess, time.Millisecond)
	metrics.RecordCacheLookup(ctx, CacheKeyTitle, CacheResultMiss)
	metrics.IncrementActiveSessions(ctx)
}

// collectMetrics records through a Metrics built with opts and returns the
// exported metrics by name.
func collectMetrics(t *testing.T, opts MetricsOptions, record func(context.Context, *Metrics)) map[string]metricdata.Metrics {
	t.Helper()
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })

	m, err := NewMetrics(mp.Meter("test"), opts)
	require.NoError(t, err)
	record(ctx, m)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			out[md.Name] = md
		}
	}
	return out
}

func recordEverything(ctx context.Context, m *Metrics) {
	m.RecordLLMCompletion(ctx, "groq", "llama-3.1-8b-instant", StatusSuccess, 100, 20, 0.001, time.Second)
	m.RecordCacheLookup(ctx, CacheKeyTitle, CacheResultHit)
	m.IncrementActiveSessions(ctx)
	m.RecordToolDispatch(ctx, "list_events", StatusSuccess, time.Millisecond)
}

func TestNewMetrics_GroupsDisabled(t *testing.T) {
	got := collectMetrics(t, MetricsOptions{}, recordEverything)

	assert.Contains(t, got, "llm_completions_total")
	assert.Contains(t, got, "tool_dispatch_total")
	for _, name := range []string{"llm_tokens_total", "llm_cost_usd_total", "event_cache_lookups_total", "active_sessions"} {
		assert.NotContains(t, got, name)
	}
}

func TestNewMetrics_GroupsEnabled(t *testing.T) {
	got := collectMetrics(t, MetricsOptions{Groups: AllMetricGroups()}, recordEverything)

	for _, name := range []string{"llm_tokens_total", "llm_cost_usd_total", "event_cache_lookups_total", "active_sessions"} {
		assert.Contains(t, got, name)
	}
}

func TestMetrics_GoogleAPIOperationLabelsCalendarKind(t *testing.T) {
	got := collectMetrics(t, MetricsOptions{}, func(ctx context.Context, m *Metrics) {
		m.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationDelete, "team@group.calendar.google.com", StatusSuccess, time.Millisecond)
	})

	md, ok := got["google_api_operations_total"]
	require.True(t, ok)
	sum, ok := md.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	kind, ok := sum.DataPoints[0].Attributes.Value(attribute.Key(attrCalendarKind))
	require.True(t, ok)
	assert.Equal(t, CalendarKindGroup, kind.AsString())

	_, hasID := sum.DataPoints[0].Attributes.Value(attribute.Key("calendar_id"))
	assert.False(t, hasID, "the raw calendar ID must not become a label")
}
