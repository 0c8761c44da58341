package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calassist/internal/google"
	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/llm"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/server"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// stringFlag returns the flag value unless it was left unset and env is non-empty.
func stringFlag(cmd *cobra.Command, name, env string) string {
	value, _ := cmd.Flags().GetString(name)
	if !cmd.Flags().Changed(name) {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return value
}

// boolFlag is stringFlag for booleans. Unparseable env values are ignored.
func boolFlag(cmd *cobra.Command, name, env string) bool {
	value, _ := cmd.Flags().GetBool(name)
	if !cmd.Flags().Changed(name) {
		if v, err := strconv.ParseBool(os.Getenv(env)); err == nil {
			return v
		}
	}
	return value
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// free for the chat transcript and the stdio MCP transport.
func newLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	opts := logging.Options{
		Level: os.Getenv("LOG_LEVEL"),
		JSON:  strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		opts.Level = "debug"
	}
	return logging.Setup(w, opts)
}

// accountFlag returns the Google account selected by --account or CALASSIST_ACCOUNT.
func accountFlag(cmd *cobra.Command) string {
	return stringFlag(cmd, "account", "CALASSIST_ACCOUNT")
}

// addLLMFlags registers the provider selection flags.
func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", llm.ProviderAnthropic, "LLM provider: anthropic or groq. Can also use CALASSIST_PROVIDER env var.")
	cmd.Flags().String("model", "", "Model name (default depends on the provider). Can also use CALASSIST_MODEL env var.")
	cmd.Flags().Float64("temperature", llm.DefaultTemperature, "Sampling temperature")
	cmd.Flags().Int64("max-tokens", 0, "Maximum tokens per completion (default depends on the provider)")
}

// llmConfig builds the provider configuration from flags and environment.
// The API key comes from ANTHROPIC_API_KEY or GROQ_API_KEY.
func llmConfig(cmd *cobra.Command) llm.Config {
	provider := strings.ToLower(stringFlag(cmd, "provider", "CALASSIST_PROVIDER"))

	cfg := llm.DefaultConfig(provider)
	if model := stringFlag(cmd, "model", "CALASSIST_MODEL"); model != "" {
		cfg.Model = model
	}
	cfg.Temperature, _ = cmd.Flags().GetFloat64("temperature")
	if maxTokens, _ := cmd.Flags().GetInt64("max-tokens"); maxTokens > 0 {
		cfg.MaxTokens = maxTokens
	}
	switch provider {
	case llm.ProviderAnthropic:
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case llm.ProviderGroq:
		cfg.APIKey = os.Getenv("GROQ_API_KEY")
	}
	return cfg
}

// addGoogleFlags registers the Google OAuth client flags.
func addGoogleFlags(cmd *cobra.Command) {
	cmd.Flags().String("google-client-id", "", "Google OAuth Client ID for token refresh. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().String("google-client-secret", "", "Google OAuth Client Secret for token refresh. Can also use GOOGLE_CLIENT_SECRET env var.")
}

func googleConfig(cmd *cobra.Command) google.OAuthConfig {
	cfg := google.ConfigFromEnv()
	cfg.ClientID = stringFlag(cmd, "google-client-id", "GOOGLE_CLIENT_ID")
	cfg.ClientSecret = stringFlag(cmd, "google-client-secret", "GOOGLE_CLIENT_SECRET")
	return cfg
}

// addMetricsFlags registers the metrics server flags.
func addMetricsFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")
}

func metricsConfig(cmd *cobra.Command) MetricsConfig {
	return MetricsConfig{
		Enabled: boolFlag(cmd, "metrics-enabled", "METRICS_ENABLED"),
		Addr:    stringFlag(cmd, "metrics-addr", "METRICS_ADDR"),
	}
}

// runtimeOptions selects what startRuntime brings up.
type runtimeOptions struct {
	Logger  *slog.Logger
	Google  google.OAuthConfig
	Metrics MetricsConfig
	// ServeMetrics starts the dedicated metrics server.
	ServeMetrics bool
	// LLM names the chat backend on the telemetry resource. Empty for
	// commands that never talk to a model.
	LLM llm.Config
}

// instrumentationConfig reads the environment and stamps this build and the
// chat backend onto it.
func instrumentationConfig(opts runtimeOptions) instrumentation.Config {
	cfg := instrumentation.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.LLM = instrumentation.LLMResource{Provider: opts.LLM.Provider, Model: opts.LLM.Model}
	return cfg
}

// appRuntime bundles the process-wide services every command needs.
type appRuntime struct {
	logger        *slog.Logger
	instr         *instrumentation.Provider
	sc            *server.ServerContext
	metricsServer *server.MetricsServer
}

// startRuntime initializes instrumentation, the token store and the server
// context, and optionally the metrics server.
func startRuntime(ctx context.Context, opts runtimeOptions) (*appRuntime, error) {
	instrConfig := instrumentationConfig(opts)
	if err := instrConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	rt := &appRuntime{logger: opts.Logger, instr: provider}

	var audit *instrumentation.AuditLogger
	if provider.Enabled() {
		audit = provider.AuditLogger(opts.Logger.With(slog.String("log_type", "audit")))
	}

	rt.sc = server.NewServerContext(ctx, server.ContextConfig{
		OAuth:   opts.Google,
		Tokens:  google.NewFileTokenProvider(),
		Metrics: provider.Metrics(),
		Audit:   audit,
		Logger:  opts.Logger,
	})

	if opts.ServeMetrics && opts.Metrics.Enabled && provider.Enabled() {
		if err := rt.startMetricsServer(opts.Metrics.Addr); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	return rt, nil
}

func (rt *appRuntime) startMetricsServer(addr string) error {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		Enabled:                 true,
		InstrumentationProvider: rt.instr,
		Logger:                  rt.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		rt.logger.Info("metrics server started", slog.String("addr", metricsServer.ListenAddr()))
	case err := <-metricsErr:
		return fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return fmt.Errorf("metrics server startup timed out")
	}

	rt.metricsServer = metricsServer
	return nil
}

// Close stops the metrics server, the server context and instrumentation.
func (rt *appRuntime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if rt.metricsServer != nil {
		if err := rt.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if rt.sc != nil {
		if err := rt.sc.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("server context shutdown: %w", err))
		}
	}
	if err := rt.instr.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("instrumentation shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
