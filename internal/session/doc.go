// Package session holds per-session key/value state, such as the calendar a
// chat session operates on.
package session
