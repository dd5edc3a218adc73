// Package generator produces quiz questions and study notes by calling an
// OpenAI-compatible chat-completions endpoint (OpenAI, Gemini's compat layer,
// Ollama, vLLM, etc.). Callers validate batch shape separately; this package
// only guarantees well-formed JSON of the agreed wire shape.
package generator

import "fmt"

// GenerateError is returned when content generation fails so the caller can
// distinguish "model returned garbage" from "endpoint was unreachable."
type GenerateError struct {
	Reason  string
	Wrapped error
}

func (e *GenerateError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("content generation failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("content generation failed: %s", e.Reason)
}

func (e *GenerateError) Unwrap() error {
	return e.Wrapped
}
