package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/instrumentation"
	"github.com/teemow/calassist/internal/logging"
)

// unknownTool is the error reported for names outside the catalog.
const unknownTool = "unknown tool"

// Result is the outcome of a tool invocation.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// JSON renders the result as it is fed back into a conversation.
func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		// Data is always built from plain calendar types.
		return fmt.Sprintf(`{"success":false,"message":%q,"error":%q}`, r.Message, err.Error())
	}
	return string(b)
}

// Calendar is the calendar surface the dispatcher drives.
// *calendar.Client implements it.
type Calendar interface {
	CalendarID() string
	CreateEvent(ctx context.Context, in calendar.CreateEventInput) (*calendar.Result, error)
	ListEvents(ctx context.Context, in calendar.ListEventsInput) (*calendar.Result, error)
	AddAttendee(ctx context.Context, identifier, email string) (*calendar.Result, error)
	DeleteEvent(ctx context.Context, identifier string) (*calendar.Result, error)
}

var _ Calendar = (*calendar.Client)(nil)

// Dispatcher routes tool invocations to a Calendar.
type Dispatcher struct {
	calendar Calendar
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	session  string
	account  string
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMetrics records dispatch counts and latency on m.
func WithMetrics(m *instrumentation.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithAuditLogger logs every invocation to al.
func WithAuditLogger(al *instrumentation.AuditLogger) DispatcherOption {
	return func(d *Dispatcher) { d.audit = al }
}

// WithSession tags audit records with a chat session ID.
func WithSession(id string) DispatcherOption {
	return func(d *Dispatcher) { d.session = id }
}

// WithAccount tags audit records with the Google account name.
func WithAccount(account string) DispatcherOption {
	return func(d *Dispatcher) { d.account = account }
}

// NewDispatcher creates a dispatcher over cal.
func NewDispatcher(cal Calendar, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		calendar: cal,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs the named tool with args. It never panics and never fails;
// every problem is described by the returned Result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (res Result) {
	tool, ok := ParseName(name)
	if !ok {
		d.logger.Warn("unknown tool requested", logging.Tool(name))
		return Result{Success: false, Error: unknownTool, Message: fmt.Sprintf("Unknown tool: %s", name)}
	}

	ctx, span := instrumentation.StartToolSpan(ctx, tool.String(),
		instrumentation.NewSpanAttributeBuilder().
			WithCalendar(d.calendar.CalendarID()).
			WithAccount(d.account).
			Build()...)
	defer span.End()

	target, attendee := stringArg(args, "event_id"), stringArg(args, "email")
	if attendee == "" {
		attendee = stringArg(args, "attendee_email")
	}
	invocation := instrumentation.NewToolInvocation(tool.String()).
		WithSession(d.session).
		WithAccount(d.account).
		WithCalendar(d.calendar.CalendarID(), operationOf(tool)).
		WithTarget(target, attendee).
		WithSpanContext(ctx)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", logging.Tool(name), slog.Any("panic", r))
			res = failed(tool, fmt.Errorf("%v", r))
		}

		status := instrumentation.StatusSuccess
		if res.Success {
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		} else {
			status = instrumentation.StatusError
			invocation.CompleteWithError(errors.New(res.Error))
			instrumentation.SetSpanError(span, errors.New(res.Error))
		}
		d.metrics.RecordToolDispatch(ctx, tool.String(), status, time.Since(start))
		d.audit.LogToolInvocation(invocation)
	}()

	res, err := d.run(ctx, tool, args)
	if err != nil {
		d.logger.Warn("tool invocation rejected", logging.Tool(name), logging.Err(err))
		return failed(tool, err)
	}
	return res
}

func (d *Dispatcher) run(ctx context.Context, tool Name, args map[string]any) (Result, error) {
	if err := requireArgs(tool, args); err != nil {
		return Result{}, err
	}

	switch tool {
	case CreateEvent:
		var in calendar.CreateEventInput
		if err := decodeArgs(args, &in); err != nil {
			return Result{}, err
		}
		res, err := d.calendar.CreateEvent(ctx, in)
		if err != nil {
			return Result{}, err
		}
		if !res.Success {
			return passThrough(res), nil
		}
		return Result{
			Success: true,
			Data:    res.Event,
			Message: fmt.Sprintf("Event '%s' created successfully. View it here: %s", res.Event.Summary, res.Event.Link),
		}, nil

	case ListEvents:
		var in listEventsArgs
		if err := decodeArgs(args, &in); err != nil {
			return Result{}, err
		}
		res, err := d.calendar.ListEvents(ctx, calendar.ListEventsInput{
			StartDate:  in.StartDate,
			EndDate:    in.EndDate,
			MaxResults: int(in.MaxResults),
		})
		if err != nil {
			return Result{}, err
		}
		if !res.Success {
			return passThrough(res), nil
		}
		return Result{
			Success: true,
			Data:    res.Events,
			Message: fmt.Sprintf("Found %d events in the specified date range.", len(res.Events)),
		}, nil

	case AddAttendee:
		var in addAttendeeArgs
		if err := decodeArgs(args, &in); err != nil {
			return Result{}, err
		}
		if in.Email == "" {
			in.Email = in.AttendeeEmail
		}
		res, err := d.calendar.AddAttendee(ctx, in.EventID, in.Email)
		if err != nil {
			return Result{}, err
		}
		if !res.Success {
			return passThrough(res), nil
		}
		return Result{
			Success: true,
			Data:    res.Event,
			Message: fmt.Sprintf("Added attendee to event '%s'. Current attendees: %s",
				res.Event.Summary, strings.Join(res.Event.Attendees, ", ")),
		}, nil

	case DeleteEvent:
		var in deleteEventArgs
		if err := decodeArgs(args, &in); err != nil {
			return Result{}, err
		}
		res, err := d.calendar.DeleteEvent(ctx, in.EventID)
		if err != nil {
			return Result{}, err
		}
		if !res.Success {
			return passThrough(res), nil
		}
		out := Result{Success: true, Message: res.Message}
		if res.Event != nil {
			out.Data = res.Event
		}
		return out, nil
	}

	return Result{Success: false, Error: unknownTool, Message: fmt.Sprintf("Unknown tool: %s", tool)}, nil
}

type listEventsArgs struct {
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	MaxResults flexInt `json:"max_results"`
}

type addAttendeeArgs struct {
	EventID       string `json:"event_id"`
	Email         string `json:"email"`
	AttendeeEmail string `json:"attendee_email"`
}

type deleteEventArgs struct {
	EventID string `json:"event_id"`
}

// flexInt accepts a JSON number or a numeric string. Some models quote integers.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n != float64(int(n)) {
		return fmt.Errorf("not an integer: %s", b)
	}
	*f = flexInt(n)
	return nil
}

// essentialArgs lists the arguments an operation cannot run without.
// The advertised schema may require more; those fall back to empty values.
func essentialArgs(tool Name) []string {
	switch tool {
	case CreateEvent:
		return []string{"summary", "start_time", "end_time"}
	case ListEvents:
		return []string{"start_date", "end_date"}
	case AddAttendee:
		return []string{"event_id", "email"}
	case DeleteEvent:
		return []string{"event_id"}
	}
	return nil
}

func requireArgs(tool Name, args map[string]any) error {
	for _, key := range essentialArgs(tool) {
		if _, ok := args[key]; ok {
			continue
		}
		if key == "email" {
			if _, ok := args["attendee_email"]; ok {
				continue
			}
		}
		return &calendar.InvalidInputError{Field: key, Err: errors.New("missing required argument")}
	}
	return nil
}

// decodeArgs converts loosely typed tool arguments into a typed input.
func decodeArgs(args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return &calendar.InvalidInputError{Field: "arguments", Err: fmt.Errorf("failed to encode arguments: %w", err)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &calendar.InvalidInputError{
				Field: typeErr.Field,
				Value: typeErr.Value,
				Err:   fmt.Errorf("expected %s", typeErr.Type),
			}
		}
		return &calendar.InvalidInputError{Field: "arguments", Err: err}
	}
	return nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func passThrough(res *calendar.Result) Result {
	return Result{Success: false, Error: res.Error, Message: res.Message}
}

func failed(tool Name, err error) Result {
	return Result{
		Success: false,
		Error:   err.Error(),
		Message: fmt.Sprintf("Failed to %s: %s", tool.Operation(), err),
	}
}

func operationOf(tool Name) string {
	switch tool {
	case CreateEvent:
		return instrumentation.OperationCreate
	case ListEvents:
		return instrumentation.OperationList
	case AddAttendee:
		return instrumentation.OperationUpdate
	case DeleteEvent:
		return instrumentation.OperationDelete
	}
	return ""
}
