// Package logging provides structured logging utilities for calassist.
//
// All packages log through log/slog. This package keeps attribute names
// consistent (tool, provider, model, calendar_id, event_id, session) and
// offers helpers that keep PII out of ordinary logs.
//
// # Usage Patterns
//
// Tag a logger once and reuse it:
//
//	logger := logging.WithProvider(slog.Default(), "anthropic", model)
//	logger.Info("completion finished", logging.Status(logging.StatusSuccess))
//
// Attendee emails never appear in clear text:
//
//	logger.Info("attendee added", logging.UserHash(email))
//
// API keys are reduced to their length:
//
//	logger.Debug("provider configured", "api_key", logging.SanitizeToken(key))
package logging
