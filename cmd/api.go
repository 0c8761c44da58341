package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calassist/internal/llm"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/server"
)

func newAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Serve chat sessions over HTTP",
		Long: `Start the HTTP chat API.

Every session owns its conversation, calendar selection and event cache.
Idle sessions expire after --session-timeout.

Endpoints:
  POST   /api/v1/sessions
  GET    /api/v1/sessions
  GET    /api/v1/sessions/{id}
  DELETE /api/v1/sessions/{id}
  POST   /api/v1/sessions/{id}/messages
  GET    /api/v1/sessions/{id}/messages
  PUT    /api/v1/sessions/{id}/calendar
  GET    /api/v1/sessions/{id}/calendars
  GET    /healthz, /readyz`,
		Args: cobra.NoArgs,
		RunE: runAPI,
	}

	addLLMFlags(cmd)
	addGoogleFlags(cmd)
	addMetricsFlags(cmd)
	cmd.Flags().String("http-addr", ":8080", "HTTP server address. Can also use CALASSIST_HTTP_ADDR env var.")
	cmd.Flags().String("allowed-origins", "", "Comma-separated CORS origins (default: any). Can also use CALASSIST_ALLOWED_ORIGINS env var.")
	cmd.Flags().Int("rate-limit", server.DefaultRateLimitRequests, "Requests per minute and client IP")
	cmd.Flags().Duration("session-timeout", server.DefaultSessionTimeout, "Idle time after which a session is removed")

	return cmd
}

func runAPI(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(cmd, cmd.ErrOrStderr())

	llmCfg := llmConfig(cmd)
	rt, err := startRuntime(ctx, runtimeOptions{
		Logger:       logger,
		Google:       googleConfig(cmd),
		Metrics:      metricsConfig(cmd),
		ServeMetrics: true,
		LLM:          llmCfg,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("shutdown failed", logging.Err(err))
		}
	}()

	llmCfg.Metrics = rt.instr.Metrics()
	provider, err := llm.NewProvider(llmCfg, logger)
	if err != nil {
		return err
	}

	sessionTimeout, _ := cmd.Flags().GetDuration("session-timeout")
	sessions := server.NewSessionManager(rt.sc, server.SessionManagerConfig{
		Provider:       provider,
		SessionTimeout: sessionTimeout,
	})
	defer sessions.Stop()

	health := server.NewHealthChecker(rt.sc)
	health.SetChatInfo(sessions, provider.Name())

	rateLimit, _ := cmd.Flags().GetInt("rate-limit")
	api := server.NewChatAPI(rt.sc, server.ChatAPIConfig{
		Sessions:          sessions,
		Health:            health,
		AllowedOrigins:    parseCommaSeparatedList(stringFlag(cmd, "allowed-origins", "CALASSIST_ALLOWED_ORIGINS")),
		RateLimitRequests: rateLimit,
		RateLimitWindow:   time.Minute,
	})

	addr := stringFlag(cmd, "http-addr", "CALASSIST_HTTP_ADDR")
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("chat API starting",
		slog.String("addr", addr),
		slog.String(logging.KeyProvider, provider.Name()),
		slog.String(logging.KeyModel, provider.Model()))

	return serveUntilDone(ctx, httpServer, health, logger)
}

// serveUntilDone runs srv until it fails or ctx is cancelled, then shuts it
// down gracefully.
func serveUntilDone(ctx context.Context, srv *http.Server, health *server.HealthChecker, logger *slog.Logger) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
