// Package resources registers MCP resources describing the calendar state of
// the connected account: the calendars it can access, the calendar the tools
// currently operate on and the tool catalog.
package resources
