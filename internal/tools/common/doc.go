// Package common provides shared utilities for MCP tool implementations:
// account selection and the instrumentation wrapper every handler goes through.
package common
