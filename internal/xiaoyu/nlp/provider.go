// Package nlp provides the language-generation layer for xiaoyu.
//
// The generation layer sits between the Telegram transport and an
// OpenAI-compatible chat completions API. Its sole responsibility is to turn
// an assembled system prompt plus the user's current message into a single
// companion reply. Prompt assembly (persona, remembered facts) lives in the
// memory package; this package only speaks the wire protocol.
//
// The package also hosts the per-user RateLimiter that callers consult
// before spending tokens on a generation call.
package nlp

import (
	"context"
	"errors"
)

// ErrGeneration is returned by a Provider when the upstream LLM call fails
// for any reason: transport errors, non-2xx API responses, or a structurally
// valid response that carries no choices. Callers should surface a localized
// apology instead of leaving the user without a reply.
var ErrGeneration = errors.New("nlp: generation failed")

// Reply is the outcome of a single successful generation call.
type Reply struct {
	// Text is the assistant message produced by the model.
	Text string

	// Model is the model identifier the request was served with.
	Model string

	// Token usage as reported by the API. Zero when the endpoint does not
	// report usage.
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider produces a companion reply from a system prompt and the user's
// message. Implementations must be safe for concurrent use.
type Provider interface {
	// Complete performs a single generation attempt. There is no retry;
	// the caller decides how to degrade when an error is returned.
	Complete(ctx context.Context, systemPrompt, userMessage string) (*Reply, error)
}
