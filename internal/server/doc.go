// Package server hosts the long-running surfaces of calassist: the HTTP chat
// API and the shared state behind it and the MCP server.
//
// # Key Components
//
// ServerContext owns process-wide dependencies. It creates one Google
// Calendar backend per account lazily, from tokens stored on disk, and
// records OAuth refreshes.
//
// SessionManager creates chat sessions. Every session has its own event
// cache, key/value store (selected calendar) and conversation history, so
// title lookups in one session never see events cached by another. Idle
// sessions expire after SessionTimeout.
//
// ChatAPI exposes sessions over a chi router:
//
//	POST   /api/v1/sessions
//	GET    /api/v1/sessions
//	GET    /api/v1/sessions/{id}
//	DELETE /api/v1/sessions/{id}
//	POST   /api/v1/sessions/{id}/messages
//	GET    /api/v1/sessions/{id}/messages
//	PUT    /api/v1/sessions/{id}/calendar
//	GET    /api/v1/sessions/{id}/calendars
//	GET    /healthz, /readyz, /healthz/detailed
//
// Requests are rate limited per client IP and traced with otelhttp.
//
// MetricsServer serves Prometheus metrics on a dedicated port.
package server
