// Package chat keeps the conversation history of one assistant session and
// runs each user turn through an LLM provider with the calendar tools attached.
//
// The first history entry is always the system prompt. It carries the current
// date and time and is regenerated before every turn so relative dates such as
// "tomorrow" resolve against the moment the user asks.
package chat
