package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// Test constants to reduce string repetition and satisfy goconst
const (
	testAttendee   = "jane@example.com"
	testDomain     = "example.com"
	testAccount    = "work"
	testSession    = "3f1c7d2e-session"
	testCalendar   = "primary"
	testTraceID    = "abc123def456"
	testSpanID     = "span789"
	testToolCreate = "create_event"
	testToolAdd    = "add_attendee"
	testToolList   = "list_events"
)

func attrsByKey(attrs []slog.Attr) map[string]slog.Attr {
	m := make(map[string]slog.Attr, len(attrs))
	for _, attr := range attrs {
		m[attr.Key] = attr
	}
	return m
}

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testToolCreate)

	// Verify initial state
	if ti.Tool != testToolCreate {
		t.Errorf("Tool = %q, want %q", ti.Tool, testToolCreate)
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ti.CompleteSuccess()

	if !ti.Success {
		t.Error("Success should be true")
	}
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if ti.Error != "" {
		t.Errorf("Error should be empty, got %q", ti.Error)
	}
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation(testToolAdd)
	ti.CompleteWithError(errors.New("permission denied"))

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "permission denied" {
		t.Errorf("Error = %q, want %q", ti.Error, "permission denied")
	}
}

func TestToolInvocation_Builders(t *testing.T) {
	ti := NewToolInvocation(testToolAdd).
		WithSession(testSession).
		WithAccount(testAccount).
		WithCalendar(testCalendar, OperationUpdate).
		WithTarget("Standup", testAttendee)

	if ti.Session != testSession {
		t.Errorf("Session = %q, want %q", ti.Session, testSession)
	}
	if ti.Account != testAccount {
		t.Errorf("Account = %q, want %q", ti.Account, testAccount)
	}
	if ti.CalendarID != testCalendar || ti.Operation != OperationUpdate {
		t.Errorf("CalendarID/Operation = %q/%q", ti.CalendarID, ti.Operation)
	}
	if ti.Target != "Standup" || ti.Attendee != testAttendee {
		t.Errorf("Target/Attendee = %q/%q", ti.Target, ti.Attendee)
	}
	if domain := ti.AttendeeDomain(); domain != testDomain {
		t.Errorf("AttendeeDomain() = %q, want %q", domain, testDomain)
	}
}

func TestToolInvocation_Status(t *testing.T) {
	ti := NewToolInvocation("test")

	ti.Success = true
	if status := ti.Status(); status != StatusSuccess {
		t.Errorf("Status() = %q, want %q", status, StatusSuccess)
	}

	ti.Success = false
	if status := ti.Status(); status != StatusError {
		t.Errorf("Status() = %q, want %q", status, StatusError)
	}
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	ti := NewToolInvocation(testToolAdd).
		WithSession(testSession).
		WithAccount(testAccount).
		WithCalendar(testCalendar, OperationUpdate).
		WithTarget("Standup", testAttendee).
		CompleteSuccess()
	ti.TraceID = testTraceID

	attrMap := attrsByKey(ti.LogAttrs())

	for _, key := range []string{"tool", "duration", "success", "session", "account", "calendar_id", "operation", "attendee_domain", "trace_id"} {
		if _, ok := attrMap[key]; !ok {
			t.Errorf("Missing attribute: %s", key)
		}
	}

	// PII must not leak into operational logs
	if _, ok := attrMap["attendee"]; ok {
		t.Error("attendee should not be present in LogAttrs")
	}
	if _, ok := attrMap["target"]; ok {
		t.Error("target should not be present in LogAttrs")
	}
	if domain := attrMap["attendee_domain"].Value.String(); domain != testDomain {
		t.Errorf("attendee_domain = %q, want %q", domain, testDomain)
	}
}

func TestToolInvocation_LogAttrs_WithError(t *testing.T) {
	ti := NewToolInvocation(testToolCreate).
		CompleteWithError(errors.New("test error"))

	attrMap := attrsByKey(ti.LogAttrs())

	if errVal := attrMap["error"].Value.String(); errVal != "test error" {
		t.Errorf("error = %q, want %q", errVal, "test error")
	}
}

func TestToolInvocation_LogAttrs_MinimalFields(t *testing.T) {
	ti := NewToolInvocation(testToolList).CompleteSuccess()

	attrMap := attrsByKey(ti.LogAttrs())

	for _, key := range []string{"session", "calendar_id", "operation", "attendee_domain", "trace_id"} {
		if _, ok := attrMap[key]; ok {
			t.Errorf("%s should not be present when empty", key)
		}
	}
}

func TestToolInvocation_LogAttrs_DefaultAccount(t *testing.T) {
	ti := NewToolInvocation(testToolList).WithAccount("default").CompleteSuccess()

	// "default" account should NOT be in attributes to reduce noise
	if _, ok := attrsByKey(ti.LogAttrs())["account"]; ok {
		t.Error("account should not be present when set to 'default'")
	}
}

func TestToolInvocation_LogAuditAttrs(t *testing.T) {
	ti := NewToolInvocation(testToolAdd).
		WithAccount(testAccount).
		WithCalendar(testCalendar, OperationUpdate).
		WithTarget("Standup", testAttendee).
		CompleteSuccess()
	ti.TraceID = testTraceID
	ti.SpanID = testSpanID

	attrMap := attrsByKey(ti.LogAuditAttrs())

	if attendee := attrMap["attendee"].Value.String(); attendee != testAttendee {
		t.Errorf("attendee = %q, want %q", attendee, testAttendee)
	}
	if target := attrMap["target"].Value.String(); target != "Standup" {
		t.Errorf("target = %q, want %q", target, "Standup")
	}
	if account := attrMap["account"].Value.String(); account != testAccount {
		t.Errorf("account = %q, want %q", account, testAccount)
	}
	if traceID := attrMap["trace_id"].Value.String(); traceID != testTraceID {
		t.Errorf("trace_id = %q, want %q", traceID, testTraceID)
	}
	if spanID := attrMap["span_id"].Value.String(); spanID != testSpanID {
		t.Errorf("span_id = %q, want %q", spanID, testSpanID)
	}
}

func TestAuditLogger_New(t *testing.T) {
	// Test with nil logger (should use default)
	al := NewAuditLogger(nil)
	if al.logger == nil {
		t.Error("logger should not be nil when created with nil")
	}

	logger := slog.Default()
	al = NewAuditLogger(logger)
	if al.logger != logger {
		t.Error("logger should be the provided logger")
	}
}

func TestAuditLogger_LogToolInvocation_Anonymized(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	al.LogToolInvocation(NewToolInvocation(testToolAdd).
		WithTarget("Standup", testAttendee).
		CompleteSuccess())

	out := buf.String()
	if !strings.Contains(out, "tool_executed") {
		t.Errorf("expected tool_executed message, got %q", out)
	}
	if strings.Contains(out, testAttendee) {
		t.Errorf("attendee address leaked into log: %q", out)
	}
}

func TestAuditLogger_LogToolInvocation_IncludePII(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLoggerWithConfig(slog.New(slog.NewTextHandler(&buf, nil)), AuditLoggingConfig{
		Enabled:    true,
		IncludePII: true,
	})

	al.LogToolInvocation(NewToolInvocation(testToolAdd).
		WithTarget("Standup", testAttendee).
		CompleteWithError(errors.New("Attendee already exists")))

	out := buf.String()
	if !strings.Contains(out, "tool_failed") {
		t.Errorf("expected tool_failed message, got %q", out)
	}
	if !strings.Contains(out, testAttendee) {
		t.Errorf("expected attendee in PII log, got %q", out)
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	al.SetEnabled(false)

	al.LogToolInvocation(NewToolInvocation(testToolList).CompleteSuccess())
	al.LogToolAudit(NewToolInvocation(testToolList).CompleteSuccess())

	if buf.Len() != 0 {
		t.Errorf("expected no output when disabled, got %q", buf.String())
	}

	// A nil logger is a no-op
	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(NewToolInvocation(testToolList))
}

func TestAuditLogger_LogToolAudit(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	ti := NewToolInvocation(testToolAdd).
		WithTarget("evt-1", testAttendee).
		CompleteSuccess()
	al.LogToolAudit(ti)

	if !strings.Contains(buf.String(), "tool_audit") || !strings.Contains(buf.String(), testAttendee) {
		t.Errorf("unexpected audit output %q", buf.String())
	}
}

func TestToolInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ti := NewToolInvocation("test").WithSpanContext(context.Background())

	if ti.TraceID != "" {
		t.Errorf("TraceID = %q, want empty string", ti.TraceID)
	}
	if ti.SpanID != "" {
		t.Errorf("SpanID = %q, want empty string", ti.SpanID)
	}
}

func TestToolInvocation_Complete_WithError(t *testing.T) {
	ti := NewToolInvocation("test")
	ti.Complete(false, errors.New("some error"))

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "some error" {
		t.Errorf("Error = %q, want %q", ti.Error, "some error")
	}
}
