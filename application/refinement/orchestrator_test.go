package refinement

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jdbuilder/application/completion"
	"jdbuilder/application/ports"
	"jdbuilder/domain/jd"
	apperrors "jdbuilder/pkg/errors"
	"jdbuilder/pkg/observability"
)

// stubCompleter is a deterministic ports.Completer for pipeline tests.
type stubCompleter struct {
	respond func(ctx context.Context, systemPrompt, userPrompt string) (*ports.Completion, error)
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, _ ports.CompletionOptions) (*ports.Completion, error) {
	return s.respond(ctx, systemPrompt, userPrompt)
}

func respondWithDocument(doc *jd.Document, tokens int) *stubCompleter {
	return &stubCompleter{
		respond: func(context.Context, string, string) (*ports.Completion, error) {
			raw, err := json.Marshal(doc)
			if err != nil {
				return nil, err
			}
			return &ports.Completion{Text: string(raw), TokensUsed: tokens}, nil
		},
	}
}

func newTestService(t *testing.T, completer ports.Completer, policy Policy, timeout time.Duration) *Service {
	t.Helper()
	gateway := completion.NewGateway(completer, 8192, 0.7, zap.NewNop())
	return NewService(gateway, policy, timeout, observability.NewCollector("jdbuilder"), zap.NewNop())
}

func TestRefine_LenientEchoWithNoActionableFeedback(t *testing.T) {
	doc := testDocument()
	svc := newTestService(t, respondWithDocument(doc, 120), PolicyLenientEcho, 0)

	ledger := jd.NewLedger()
	ledger.Set("role", jd.FeedbackEntry{Satisfied: boolPtr(true), Feedback: "great"})

	result, err := svc.Refine(context.Background(), Request{
		CurrentDocument: doc,
		Refinements:     ledger,
	})
	require.NoError(t, err)

	assert.Equal(t, doc, result.UpdatedJD)
	assert.Empty(t, result.ChangedSections)
	assert.Equal(t, "No changes were made to the job description.", result.Summary)
	assert.Equal(t, 120, result.TokensUsed)

	_, parseErr := time.Parse(time.RFC3339, result.Timestamp)
	assert.NoError(t, parseErr)
}

func TestRefine_StrictGateRejectsNoActionableFeedback(t *testing.T) {
	doc := testDocument()
	called := false
	completer := &stubCompleter{
		respond: func(context.Context, string, string) (*ports.Completion, error) {
			called = true
			return nil, nil
		},
	}
	svc := newTestService(t, completer, PolicyStrictGate, 0)

	ledger := jd.NewLedger()
	ledger.Set("role", jd.FeedbackEntry{Satisfied: boolPtr(true), Feedback: "great"})

	_, err := svc.Refine(context.Background(), Request{
		CurrentDocument: doc,
		Refinements:     ledger,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, called, "completion service must not be contacted")
}

func TestRefine_StrictGateAcceptsActionableFeedback(t *testing.T) {
	doc := testDocument()
	updated, err := doc.Clone()
	require.NoError(t, err)
	updated.Roles[0].Tools = []string{"Figma"}

	svc := newTestService(t, respondWithDocument(updated, 200), PolicyStrictGate, 0)

	ledger := jd.NewLedger()
	ledger.Set("tools", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "remove Canva"})

	result, err := svc.Refine(context.Background(), Request{
		CurrentDocument: doc,
		Refinements:     ledger,
	})
	require.NoError(t, err)
	require.Len(t, result.ChangedSections, 1)
	assert.Equal(t, "roles[0].tools", result.ChangedSections[0].Section)
}

func TestRefine_MissingInputs(t *testing.T) {
	svc := newTestService(t, respondWithDocument(testDocument(), 0), PolicyLenientEcho, 0)

	_, err := svc.Refine(context.Background(), Request{Refinements: jd.NewLedger()})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Refine(context.Background(), Request{CurrentDocument: testDocument()})
	assert.True(t, apperrors.IsValidation(err))
}

func TestRefine_SummaryNamesChangedSections(t *testing.T) {
	doc := testDocument()
	updated, err := doc.Clone()
	require.NoError(t, err)
	updated.Roles[0].Tools = []string{"Figma"}

	svc := newTestService(t, respondWithDocument(updated, 150), PolicyLenientEcho, 0)

	ledger := jd.NewLedger()
	ledger.Set("tools", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "remove Canva"})

	result, err := svc.Refine(context.Background(), Request{
		CurrentDocument: doc,
		Refinements:     ledger,
	})
	require.NoError(t, err)

	assert.Contains(t, result.Summary, "I've updated 1 section(s) based on your feedback:")
	assert.Contains(t, result.Summary, "- Tools: remove Canva")
}

func TestRefine_DemoteSkillToNiceToHave(t *testing.T) {
	doc := testDocument()
	doc.Roles[0].Skills = []string{"GHL", "Canva"}

	updated, err := doc.Clone()
	require.NoError(t, err)
	updated.Roles[0].Skills = []string{"GHL", "Canva (nice to have)"}

	svc := newTestService(t, respondWithDocument(updated, 130), PolicyLenientEcho, 0)

	ledger := jd.NewLedger()
	ledger.Set("skills", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "mark Canva as good to have"})

	result, err := svc.Refine(context.Background(), Request{
		CurrentDocument: doc,
		Refinements:     ledger,
	})
	require.NoError(t, err)

	require.Len(t, result.ChangedSections, 1)
	assert.Equal(t, "roles[0].skills", result.ChangedSections[0].Section)
	assert.Contains(t, result.Summary, "mark Canva as good to have")
	assert.Equal(t, []string{"GHL", "Canva (nice to have)"}, result.UpdatedJD.Roles[0].Skills)
}

func TestRefine_Idempotent(t *testing.T) {
	doc := testDocument()
	updated, err := doc.Clone()
	require.NoError(t, err)
	updated.Roles[0].Skills = append(updated.Roles[0].Skills, "Motion")

	svc := newTestService(t, respondWithDocument(updated, 100), PolicyLenientEcho, 0)

	ledger := jd.NewLedger()
	ledger.Set("skills", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "add motion design"})

	req := Request{CurrentDocument: doc, Refinements: ledger}
	first, err := svc.Refine(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Refine(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.UpdatedJD, second.UpdatedJD)
	assert.Equal(t, first.ChangedSections, second.ChangedSections)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestRefine_UpstreamTimeout(t *testing.T) {
	completer := &stubCompleter{
		respond: func(ctx context.Context, _, _ string) (*ports.Completion, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc := newTestService(t, completer, PolicyLenientEcho, 10*time.Millisecond)

	ledger := jd.NewLedger()
	ledger.Set("tools", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "remove Canva"})

	_, err := svc.Refine(context.Background(), Request{
		CurrentDocument: testDocument(),
		Refinements:     ledger,
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstreamTimeout))
}

func TestRefine_UpstreamMalformedJSON(t *testing.T) {
	completer := &stubCompleter{
		respond: func(context.Context, string, string) (*ports.Completion, error) {
			return &ports.Completion{Text: "sorry, I cannot do that", TokensUsed: 5}, nil
		},
	}
	svc := newTestService(t, completer, PolicyLenientEcho, 0)

	ledger := jd.NewLedger()
	ledger.Set("tools", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "remove Canva"})

	_, err := svc.Refine(context.Background(), Request{
		CurrentDocument: testDocument(),
		Refinements:     ledger,
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstreamMalformedJSON))
}

func TestRefine_UpstreamEmptyResponse(t *testing.T) {
	completer := &stubCompleter{
		respond: func(context.Context, string, string) (*ports.Completion, error) {
			return &ports.Completion{Text: "", TokensUsed: 0}, nil
		},
	}
	svc := newTestService(t, completer, PolicyLenientEcho, 0)

	ledger := jd.NewLedger()
	ledger.Set("tools", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "remove Canva"})

	_, err := svc.Refine(context.Background(), Request{
		CurrentDocument: testDocument(),
		Refinements:     ledger,
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstreamEmptyResponse))
}

func TestRefine_CodeFencedResponseTolerated(t *testing.T) {
	doc := testDocument()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	completer := &stubCompleter{
		respond: func(context.Context, string, string) (*ports.Completion, error) {
			return &ports.Completion{Text: "```json\n" + string(raw) + "\n```", TokensUsed: 80}, nil
		},
	}
	svc := newTestService(t, completer, PolicyLenientEcho, 0)

	result, err := svc.Refine(context.Background(), Request{
		CurrentDocument: doc,
		Refinements:     jd.NewLedger(),
	})
	require.NoError(t, err)
	assert.Equal(t, doc, result.UpdatedJD)
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyStrictGate, ParsePolicy("strict"))
	assert.Equal(t, PolicyStrictGate, ParsePolicy("STRICT"))
	assert.Equal(t, PolicyLenientEcho, ParsePolicy("lenient"))
	assert.Equal(t, PolicyLenientEcho, ParsePolicy(""))
	assert.Equal(t, PolicyLenientEcho, ParsePolicy("anything-else"))
}
