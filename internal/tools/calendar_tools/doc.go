// Package calendar_tools exposes the assistant's calendar tools over MCP
// (Model Context Protocol).
//
// The four catalog tools (create_event, list_events, add_attendee and
// delete_event) are registered with the same JSON Schema the chat providers
// see and run through the same tools.Dispatcher, so an MCP client gets the
// exact {success, data, message, error} results the chat assistant does.
// list_calendars and select_calendar let a client pick the calendar the
// catalog tools operate on.
//
// Every tool takes an optional "account" argument naming the Google account.
// Each account gets one calendar.Client, so the event cache that resolves
// event titles persists across calls.
package calendar_tools
