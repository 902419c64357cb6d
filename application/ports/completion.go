// Package ports declares the collaborator interfaces the application layer
// depends on, so infrastructure can be swapped for deterministic stubs in
// tests.
package ports

import "context"

// CompletionOptions tunes a single completion call.
type CompletionOptions struct {
	// JSONMode asks the service to emit a single valid JSON object.
	JSONMode    bool
	MaxTokens   int
	Temperature float64
}

// Completion is a successful completion result.
type Completion struct {
	Text       string
	TokensUsed int
}

// Completer is the external text-completion collaborator. Implementations
// perform exactly one attempt per call; retry policy, if any, belongs to
// the caller.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (*Completion, error)
}
