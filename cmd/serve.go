package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/resources"
	"github.com/teemow/calassist/internal/server"
	"github.com/teemow/calassist/internal/tools/calendar_tools"
	"github.com/teemow/calassist/internal/tools/common"
)

const transportStdio = "stdio"

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP (Model Context Protocol) server exposing the calendar tools:
create_event, list_events, add_attendee, delete_event, list_calendars and
select_calendar.

Supports stdio, sse and streamable-http transports. Over HTTP the Google
account is taken from the X-Calassist-Account header or the "account"
tool argument.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	addGoogleFlags(cmd)
	addMetricsFlags(cmd)
	cmd.Flags().String("transport", transportStdio, "Transport type: stdio, sse or streamable-http")
	cmd.Flags().String("http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().String("base-url", "", "Public base URL advertised to SSE clients. Can also use MCP_BASE_URL env var.")
	cmd.Flags().Bool("disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().Bool("yolo", false, "Enable write operations (create_event, add_attendee, delete_event). Default is read-only mode.")
	cmd.Flags().String("calendar-id", "", "Calendar the tools start on (default: primary). Can also use CALASSIST_CALENDAR_ID env var.")
	cmd.Flags().Int("rate-limit", 0, "Requests per minute and client IP on the MCP endpoint (0 disables)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	transport, _ := cmd.Flags().GetString("transport")
	if err := validateTransport(transport); err != nil {
		return err
	}

	// stdout carries the protocol in stdio mode
	logger := newLogger(cmd, os.Stderr)

	rt, err := startRuntime(ctx, runtimeOptions{
		Logger:       logger,
		Google:       googleConfig(cmd),
		Metrics:      metricsConfig(cmd),
		ServeMetrics: transport != transportStdio,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("shutdown failed", logging.Err(err))
		}
	}()

	// readOnly is the inverse of yolo
	yolo, _ := cmd.Flags().GetBool("yolo")
	readOnly := !yolo
	if readOnly {
		logger.Info("starting MCP server in read-only mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting MCP server with write operations enabled")
	}

	clients := calendar_tools.NewClients(rt.sc, stringFlag(cmd, "calendar-id", "CALASSIST_CALENDAR_ID"))
	mcpSrv, err := newMCPServer(rt.sc, clients, readOnly)
	if err != nil {
		return err
	}

	switch transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	case server.TransportSSE, server.TransportStreamableHTTP:
		disableStreaming, _ := cmd.Flags().GetBool("disable-streaming")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		httpServer, err := server.NewMCPHTTPServer(mcpSrv, server.MCPHTTPServerConfig{
			Transport:         transport,
			BaseURL:           stringFlag(cmd, "base-url", "MCP_BASE_URL"),
			DisableStreaming:  disableStreaming,
			ContextFunc:       common.AccountFromRequest,
			Health:            server.NewHealthChecker(rt.sc),
			RateLimitRequests: rateLimit,
			RateLimitWindow:   time.Minute,
		})
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("http-addr")
		return runHTTPServer(ctx, httpServer, addr, transport, logger)
	default:
		return validateTransport(transport)
	}
}

func validateTransport(transport string) error {
	switch transport {
	case transportStdio, server.TransportSSE, server.TransportStreamableHTTP:
		return nil
	}
	return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", transport)
}

// newMCPServer builds the MCP server with the calendar tools and resources.
func newMCPServer(sc *server.ServerContext, clients *calendar_tools.Clients, readOnly bool) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("calassist", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
		mcpserver.WithRecovery(),
	)

	if err := calendar_tools.RegisterCalendarTools(mcpSrv, sc, clients, readOnly); err != nil {
		return nil, err
	}
	if err := resources.RegisterCalendarResources(mcpSrv, clients); err != nil {
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}
	return mcpSrv, nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, httpServer *server.MCPHTTPServer, addr, transport string, logger *slog.Logger) error {
	logger.Info("MCP HTTP server starting",
		slog.String("addr", addr),
		slog.String("transport", transport))

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
