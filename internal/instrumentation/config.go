package instrumentation

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: calassist)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// ServiceInstanceID is the unique instance identifier (default: hostname)
	ServiceInstanceID string

	// LLM identifies the chat backend this process talks to. It is attached
	// to the telemetry resource so dashboards can split by provider and model.
	LLM LLMResource

	// Enabled determines if instrumentation is active (default: true)
	Enabled bool

	// MetricsExporter is one of "prometheus", "otlp" or "stdout" (default: "prometheus")
	MetricsExporter string

	// TracingExporter is one of "otlp", "stdout" or "none" (default: "none")
	TracingExporter string

	// OTLPEndpoint is the collector address without protocol prefix, e.g. "localhost:4318"
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP. Traces carry event titles,
	// so keep this off outside local development.
	OTLPInsecure bool

	// TraceSamplingRate is the sampling rate for traces (0.0 to 1.0, default: 0.1)
	TraceSamplingRate float64

	// DetailedLabels adds the account label to tool metrics.
	DetailedLabels bool

	// Metrics switches optional metric groups on or off.
	Metrics MetricGroups

	// AuditLogging configures audit logging behavior.
	AuditLogging AuditLoggingConfig
}

// LLMResource describes the language model backend for resource attributes.
type LLMResource struct {
	Provider string
	Model    string
}

// MetricGroups toggles the metric families that only some deployments want.
// The HTTP, Google API and tool dispatch instruments are always created.
type MetricGroups struct {
	// LLMCost creates llm_tokens_total and llm_cost_usd_total.
	LLMCost bool

	// EventCache creates event_cache_lookups_total.
	EventCache bool

	// Sessions creates active_sessions.
	Sessions bool
}

// AllMetricGroups enables every optional metric family.
func AllMetricGroups() MetricGroups {
	return MetricGroups{LLMCost: true, EventCache: true, Sessions: true}
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	// Audit logs may contain attendee emails and should be routed to secure storage.
	Enabled bool

	// IncludePII logs full attendee addresses instead of their domains.
	IncludePII bool

	// LogLevel sets the slog level for audit log messages (default: info).
	LogLevel string
}

// DefaultConfig reads the configuration from the process environment.
func DefaultConfig() Config {
	return configFromEnv(os.Getenv)
}

func configFromEnv(getenv func(string) string) Config {
	env := envReader(getenv)
	return Config{
		ServiceName:       env.str("OTEL_SERVICE_NAME", "calassist"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: env.str("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           env.boolean("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   env.str("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   env.str("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      env.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: env.float("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    env.boolean("METRICS_DETAILED_LABELS", false),
		Metrics: MetricGroups{
			LLMCost:    env.boolean("CALASSIST_METRICS_LLM_COST", true),
			EventCache: env.boolean("CALASSIST_METRICS_EVENT_CACHE", true),
			Sessions:   env.boolean("CALASSIST_METRICS_SESSIONS", true),
		},
		AuditLogging: AuditLoggingConfig{
			Enabled:    env.boolean("AUDIT_LOGGING_ENABLED", true),
			IncludePII: env.boolean("AUDIT_LOGGING_INCLUDE_PII", false),
			LogLevel:   env.str("AUDIT_LOGGING_LEVEL", "info"),
		},
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		errs = append(errs, fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate))
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		errs = append(errs, fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter))
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		errs = append(errs, fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter))
	}

	if c.OTLPEndpoint == "" {
		if c.TracingExporter == ExporterOTLP {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP tracing exporter"))
		}
		if c.MetricsExporter == ExporterOTLP {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP metrics exporter"))
		}
	}

	return errors.Join(errs...)
}

// envReader looks up settings with fallbacks. Unparseable values fall back too.
type envReader func(string) string

func (e envReader) str(key, fallback string) string {
	if v := e(key); v != "" {
		return v
	}
	return fallback
}

func (e envReader) boolean(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(e(key))
	if err != nil {
		return fallback
	}
	return parsed
}

func (e envReader) float(key string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(e(key), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// Constants for metric label values.
const (
	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// OAuth result values
	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultExpired = "expired"

	// Google service names
	ServiceCalendar = "calendar"

	// Event cache key forms and lookup results
	CacheKeyID      = "id"
	CacheKeyTitle   = "title"
	CacheResultHit  = "hit"
	CacheResultMiss = "miss"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// Metric recording intervals
	DefaultMetricInterval = 10 * time.Second
)
