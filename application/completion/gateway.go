// Package completion wraps the raw text-completion collaborator with the
// document-shaped contract the pipelines need: send a prompt, get back a
// parsed Document or a typed failure.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"jdbuilder/application/ports"
	"jdbuilder/domain/jd"
	apperrors "jdbuilder/pkg/errors"
)

// SystemPrompt is the fixed instruction describing the service's role and
// the output-format contract. Every document-producing call uses it.
const SystemPrompt = `You are an expert HR consultant who writes and refines structured job description packages for agencies hiring offshore talent.

You always respond with a single valid JSON object matching the exact structure of the document you are given or asked to produce. No markdown, no code fences, no commentary outside the JSON. Preserve field names, nesting, and the order of list items you were not asked to change.`

// Gateway invokes the completion service and parses the result into a
// Document. It performs no schema validation beyond JSON well-formedness;
// partially missing fields are the downstream consumer's problem. It never
// retries: one call per request.
type Gateway struct {
	completer   ports.Completer
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// NewGateway creates a gateway with the given output budget and sampling
// temperature. Temperature is moderate rather than zero so the prose stays
// natural while the structural constraints keep output conformant.
func NewGateway(completer ports.Completer, maxTokens int, temperature float64, logger *zap.Logger) *Gateway {
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	if temperature <= 0 {
		temperature = 0.7
	}
	return &Gateway{
		completer:   completer,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// CompleteDocument sends the compiled prompt and returns the parsed
// document plus tokens consumed.
func (g *Gateway) CompleteDocument(ctx context.Context, userPrompt string) (*jd.Document, int, error) {
	result, err := g.completer.Complete(ctx, SystemPrompt, userPrompt, ports.CompletionOptions{
		JSONMode:    true,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return nil, 0, classifyUpstreamError(err)
	}

	text := stripCodeFences(result.Text)
	if text == "" {
		return nil, result.TokensUsed, apperrors.NewExternalError("completion", nil).
			WithCode(apperrors.CodeUpstreamEmptyResponse).
			WithDetails("completion service returned no content")
	}

	var doc jd.Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		g.logger.Warn("completion returned unparseable JSON",
			zap.Int("length", len(text)),
			zap.Error(err),
		)
		return nil, result.TokensUsed, apperrors.NewExternalError("completion", err).
			WithCode(apperrors.CodeUpstreamMalformedJSON).
			WithDetails("completion service returned content that is not valid JSON")
	}

	return &doc, result.TokensUsed, nil
}

// classifyUpstreamError maps transport errors onto the failure taxonomy.
// Errors already typed by the transport pass through; deadline expiry
// becomes a distinct timeout failure.
func classifyUpstreamError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("completion").
			WithCode(apperrors.CodeUpstreamTimeout).
			WithCause(err)
	}
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}
	return apperrors.NewExternalError("completion", err).
		WithCode(apperrors.CodeUpstreamFailure)
}

// stripCodeFences removes a wrapping markdown fence if the model ignored
// the no-fences instruction, a common failure mode worth tolerating.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
