// Package llm runs chat completions against Anthropic and Groq with the
// calendar tools attached.
//
// A completion is at most two round trips. The first request carries the
// tool catalog; when the model asks for a tool, the tool is dispatched and a
// second request without tools turns the result into a natural-language
// answer. Both providers return the same Response envelope and report every
// backend failure as a *ProviderError.
package llm
