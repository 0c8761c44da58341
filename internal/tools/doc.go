// Package tools declares the calendar tools offered to language models and
// dispatches their invocations to a calendar client.
//
// The catalog is fixed: create_event, list_events, add_attendee and
// delete_event. Both completion providers and the MCP server consume the same
// definitions, so a call produced against one schema is valid for the others.
//
// Dispatch never returns an error. Unknown tools, malformed arguments, panics
// and calendar failures are all reported through Result so they can be fed
// back into the conversation as text.
package tools
