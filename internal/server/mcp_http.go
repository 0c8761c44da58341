package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MCP HTTP transports.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// ContextFunc enriches the context of every MCP request with data from the
// HTTP request, such as the Google account to act for.
type ContextFunc func(ctx context.Context, r *http.Request) context.Context

// MCPHTTPServerConfig configures MCPHTTPServer.
type MCPHTTPServerConfig struct {
	// Transport is TransportSSE or TransportStreamableHTTP.
	Transport string
	// BaseURL is advertised to SSE clients. Optional.
	BaseURL string
	// DisableStreaming makes the streamable HTTP transport answer with plain JSON.
	DisableStreaming bool
	ContextFunc      ContextFunc
	Health           *HealthChecker

	// RateLimitRequests per RateLimitWindow and client IP. Zero disables the limit.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// MCPHTTPServer serves an MCP server over HTTP next to the health endpoints.
type MCPHTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	config     MCPHTTPServerConfig
	httpServer *http.Server
}

// NewMCPHTTPServer creates a new HTTP server for MCP
func NewMCPHTTPServer(mcpServer *mcpserver.MCPServer, config MCPHTTPServerConfig) (*MCPHTTPServer, error) {
	switch config.Transport {
	case TransportSSE, TransportStreamableHTTP:
	default:
		return nil, fmt.Errorf("unsupported server type: %s", config.Transport)
	}
	if config.RateLimitRequests > 0 && config.RateLimitWindow <= 0 {
		config.RateLimitWindow = DefaultRateLimitWindow
	}

	return &MCPHTTPServer{
		mcpServer: mcpServer,
		config:    config,
	}, nil
}

// Handler returns the HTTP handler with the MCP and health endpoints.
func (s *MCPHTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.config.Health != nil {
		s.config.Health.RegisterHealthEndpoints(mux)
	}

	switch s.config.Transport {
	case TransportSSE:
		opts := []mcpserver.SSEOption{
			mcpserver.WithSSEEndpoint("/sse"),
			mcpserver.WithMessageEndpoint("/message"),
		}
		if s.config.BaseURL != "" {
			opts = append(opts, mcpserver.WithBaseURL(s.config.BaseURL))
		}
		if s.config.ContextFunc != nil {
			opts = append(opts, mcpserver.WithSSEContextFunc(mcpserver.SSEContextFunc(s.config.ContextFunc)))
		}
		sseServer := mcpserver.NewSSEServer(s.mcpServer, opts...)
		mux.Handle("/sse", s.limit(sseServer))
		mux.Handle("/message", s.limit(sseServer))

	case TransportStreamableHTTP:
		opts := []mcpserver.StreamableHTTPOption{
			mcpserver.WithEndpointPath("/mcp"),
		}
		if s.config.DisableStreaming {
			opts = append(opts, mcpserver.WithDisableStreaming(true))
		}
		if s.config.ContextFunc != nil {
			opts = append(opts, mcpserver.WithHTTPContextFunc(mcpserver.HTTPContextFunc(s.config.ContextFunc)))
		}
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...)
		mux.Handle("/mcp", s.limit(httpServer))
	}

	return mux
}

func (s *MCPHTTPServer) limit(next http.Handler) http.Handler {
	if s.config.RateLimitRequests <= 0 {
		return next
	}
	return httprate.Limit(
		s.config.RateLimitRequests,
		s.config.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)(next)
}

// Start starts the HTTP server and blocks until it stops.
func (s *MCPHTTPServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if s.config.Health != nil {
		s.config.Health.SetReady(true)
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *MCPHTTPServer) Shutdown(ctx context.Context) error {
	if s.config.Health != nil {
		s.config.Health.SetReady(false)
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
