// Package refinement implements the plan, apply, verify loop that turns
// targeted client feedback into a surgically updated job description:
// compile an instruction prompt, invoke the completion service, then diff
// the result section by section against the original.
package refinement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"jdbuilder/application/completion"
	"jdbuilder/domain/jd"
	apperrors "jdbuilder/pkg/errors"
	"jdbuilder/pkg/observability"
)

// Policy selects how the orchestrator treats a request with no actionable
// feedback entries.
type Policy string

const (
	// PolicyLenientEcho runs the full pipeline anyway; the compiled prompt
	// instructs an unchanged echo and the response reports zero changes.
	PolicyLenientEcho Policy = "lenient"
	// PolicyStrictGate rejects the request before compiling a prompt or
	// contacting the completion service.
	PolicyStrictGate Policy = "strict"
)

// ParsePolicy maps a configuration string onto a Policy, defaulting to
// lenient echo.
func ParsePolicy(s string) Policy {
	if strings.EqualFold(s, string(PolicyStrictGate)) {
		return PolicyStrictGate
	}
	return PolicyLenientEcho
}

// Request is one refinement request. The document is request-scoped and
// treated as immutable input; nothing here is persisted by the pipeline.
type Request struct {
	CurrentDocument *jd.Document `json:"currentDocument"`
	Refinements     *jd.Ledger   `json:"refinements"`
	ChatHistory     []ChatTurn   `json:"chatHistory,omitempty"`
}

// Result is the successful response payload.
type Result struct {
	UpdatedJD       *jd.Document   `json:"updatedJD"`
	ChangedSections []ChangeRecord `json:"changedSections"`
	Summary         string         `json:"summary"`
	Timestamp       string         `json:"timestamp"`
	TokensUsed      int            `json:"tokensUsed"`
}

// Service is the refinement orchestrator. Each request is handled in a
// single stateless pass; the only side effect is the completion call, and
// on any failure no document is returned at all, so the caller's copy is
// never at risk.
type Service struct {
	gateway *completion.Gateway
	policy  Policy
	timeout time.Duration
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewService creates the orchestrator. A non-positive timeout disables the
// per-request bound.
func NewService(gateway *completion.Gateway, policy Policy, timeout time.Duration, metrics *observability.Collector, logger *zap.Logger) *Service {
	return &Service{
		gateway: gateway,
		policy:  policy,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Refine runs the pipeline end to end.
func (s *Service) Refine(ctx context.Context, req Request) (*Result, error) {
	if req.CurrentDocument == nil {
		return nil, s.reject(apperrors.NewValidationError("currentDocument is required"))
	}
	if req.Refinements == nil {
		return nil, s.reject(apperrors.NewValidationError("refinements are required"))
	}

	unsatisfied := req.Refinements.UnsatisfiedEntries()
	if len(unsatisfied) == 0 && s.policy == PolicyStrictGate {
		return nil, s.reject(apperrors.NewValidationError(
			"no actionable feedback: mark at least one section as unsatisfied and add a comment"))
	}

	prompt, err := CompilePrompt(req.CurrentDocument, req.Refinements, req.ChatHistory)
	if err != nil {
		return nil, s.fail(apperrors.Wrap(err, "compile refinement prompt"))
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	updated, tokens, err := s.gateway.CompleteDocument(ctx, prompt)
	s.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.observeUpstreamFailure(err)
		s.logger.Warn("refinement upstream call failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.CompletionTokens.Add(float64(tokens))

	changed, err := DetectChanges(req.CurrentDocument, updated, req.Refinements)
	if err != nil {
		return nil, s.fail(apperrors.Wrap(err, "detect changes"))
	}

	s.metrics.Refinements.WithLabelValues("success").Inc()
	s.metrics.SectionsChanged.Observe(float64(len(changed)))
	s.logger.Info("refinement completed",
		zap.Int("requested", len(unsatisfied)),
		zap.Int("changed", len(changed)),
		zap.Int("tokens", tokens),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		UpdatedJD:       updated,
		ChangedSections: changed,
		Summary:         renderSummary(changed),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		TokensUsed:      tokens,
	}, nil
}

// renderSummary produces the human-readable change report: a count-aware
// lead sentence followed by one bullet per changed section.
func renderSummary(changed []ChangeRecord) string {
	if len(changed) == 0 {
		return "No changes were made to the job description."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I've updated %d section(s) based on your feedback:", len(changed))
	for _, rec := range changed {
		fmt.Fprintf(&b, "\n- %s: %s", jd.DisplayName(rec.RefinementKey), rec.Feedback)
	}
	return b.String()
}

func (s *Service) reject(err *apperrors.AppError) error {
	s.metrics.Refinements.WithLabelValues("rejected").Inc()
	return err
}

func (s *Service) fail(err error) error {
	s.metrics.Refinements.WithLabelValues("error").Inc()
	return err
}

func (s *Service) observeUpstreamFailure(err error) {
	kind := "failure"
	if appErr := apperrors.GetAppError(err); appErr != nil && appErr.Code != "" {
		kind = strings.ToLower(strings.TrimPrefix(appErr.Code, "UPSTREAM_"))
	}
	s.metrics.UpstreamFailures.WithLabelValues(kind).Inc()
	s.metrics.Refinements.WithLabelValues("upstream_error").Inc()
}
