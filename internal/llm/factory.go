package llm

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderGroq      = "groq"
)

// DefaultTemperature is used when no temperature is configured.
const DefaultTemperature = 0.7

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	// Model, MaxTokens and BaseURL default per provider when empty.
	Model       string
	MaxTokens   int64
	BaseURL     string
	Temperature float64
	MaxRetries  int

	// HTTPClient defaults to a client with an OpenTelemetry transport.
	HTTPClient *http.Client
	Prices     PriceTable
	Metrics    *instrumentation.Metrics
}

// DefaultConfig returns the defaults for provider.
func DefaultConfig(provider string) Config {
	cfg := Config{
		Provider:    provider,
		Temperature: DefaultTemperature,
		MaxRetries:  2,
	}
	switch provider {
	case ProviderAnthropic:
		cfg.Model = DefaultAnthropicModel
		cfg.MaxTokens = DefaultAnthropicMaxTokens
	case ProviderGroq:
		cfg.Model = DefaultGroqModel
		cfg.MaxTokens = DefaultGroqMaxTokens
		cfg.BaseURL = DefaultGroqBaseURL
	}
	return cfg
}

// Validate checks that the configuration names a known provider and has
// credentials.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderGroq:
	default:
		return fmt.Errorf("unknown LLM provider %q (supported: %s, %s)", c.Provider, ProviderAnthropic, ProviderGroq)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%s API key is required", c.Provider)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative, got %d", c.MaxTokens)
	}
	if limit := MaxTemperature(c.Provider); c.Temperature < 0 || c.Temperature > limit {
		return fmt.Errorf("temperature for %s must be between 0 and %v, got %v", c.Provider, limit, c.Temperature)
	}
	return nil
}

// MaxTemperature is the highest sampling temperature provider accepts.
// Anthropic rejects anything above 1; Groq follows OpenAI's range of 0 to 2.
func MaxTemperature(provider string) float64 {
	if provider == ProviderAnthropic {
		return 1
	}
	return 2
}

// NewProvider creates the provider named by cfg.Provider. Empty settings
// fall back to the provider defaults.
func NewProvider(cfg Config, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultConfig(cfg.Provider)
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.Prices == nil {
		cfg.Prices = DefaultPrices()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	f := &flow{
		name: cfg.Provider,
		defaults: callParams{
			model:       cfg.Model,
			temperature: cfg.Temperature,
			maxTokens:   cfg.MaxTokens,
		},
		prices:  cfg.Prices,
		logger:  logging.WithProvider(logger, cfg.Provider, cfg.Model),
		metrics: cfg.Metrics,
	}

	logger.Debug("LLM provider configured",
		slog.String(logging.KeyProvider, cfg.Provider),
		slog.String(logging.KeyModel, cfg.Model),
		slog.String("api_key", logging.SanitizeToken(cfg.APIKey)))

	switch cfg.Provider {
	case ProviderAnthropic:
		return newAnthropicProvider(cfg, f), nil
	case ProviderGroq:
		return newGroqProvider(cfg, f), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
}
