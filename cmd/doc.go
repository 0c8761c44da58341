// Package cmd implements the command-line interface for calassist.
//
// This package provides the following commands:
//   - chat: Talk to the calendar assistant in the terminal
//   - api: Serve chat sessions over HTTP
//   - serve: Start the MCP server exposing the calendar tools to AI assistants
//   - auth: Authorize a Google account for calendar access
//   - calendars: List the calendars an account can access
//   - version: Display version information
//
// The chat command is the default command when no subcommand is specified.
package cmd
