package refinement

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jdbuilder/domain/jd"
)

func TestCompilePrompt_NoActionableFeedback(t *testing.T) {
	doc := testDocument()
	ledger := jd.NewLedger()
	ledger.Set("role", jd.FeedbackEntry{Satisfied: boolPtr(true), Feedback: "great"})

	prompt, err := CompilePrompt(doc, ledger, nil)
	require.NoError(t, err)

	assert.Contains(t, prompt, "requested no changes")
	assert.Contains(t, prompt, "Return the document unchanged")
	assert.NotContains(t, prompt, "Requested changes:")
	// The document itself still rides along for verification.
	assert.Contains(t, prompt, `"Graphic Designer"`)
}

func TestCompilePrompt_NumbersEntriesInLedgerOrder(t *testing.T) {
	doc := testDocument()
	ledger := jd.NewLedger()
	ledger.Set("tools", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "remove Canva"})
	ledger.Set("skills", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "focus more on typography"})

	prompt, err := CompilePrompt(doc, ledger, nil)
	require.NoError(t, err)

	assert.Contains(t, prompt, "1. Section: Tools")
	assert.Contains(t, prompt, "2. Section: Skills")
	assert.Contains(t, prompt, "Feedback: remove Canva")
	assert.Contains(t, prompt, `Remove "Canva"`)
	assert.Contains(t, prompt, "Hard constraints:")
	assert.Less(t,
		strings.Index(prompt, "1. Section: Tools"),
		strings.Index(prompt, "2. Section: Skills"),
	)
}

func TestCompilePrompt_HistoryCappedToLastSix(t *testing.T) {
	doc := testDocument()
	ledger := jd.NewLedger()
	ledger.Set("tools", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "remove Canva"})

	var history []ChatTurn
	for i := 0; i < 10; i++ {
		history = append(history, ChatTurn{Role: "user", Content: fmt.Sprintf("turn-%d", i)})
	}

	prompt, err := CompilePrompt(doc, ledger, history)
	require.NoError(t, err)

	assert.NotContains(t, prompt, "turn-3")
	for i := 4; i < 10; i++ {
		assert.Contains(t, prompt, fmt.Sprintf("turn-%d", i))
	}
}

func TestCompilePrompt_HistoryRoleLabels(t *testing.T) {
	doc := testDocument()
	ledger := jd.NewLedger()

	history := []ChatTurn{
		{Role: "user", Content: "please tweak the tools"},
		{Role: "assistant", Content: "done, updated the tools"},
	}

	prompt, err := CompilePrompt(doc, ledger, history)
	require.NoError(t, err)

	assert.Contains(t, prompt, "User: please tweak the tools")
	assert.Contains(t, prompt, "Assistant: done, updated the tools")
}

func TestCompilePrompt_Deterministic(t *testing.T) {
	doc := testDocument()
	ledger := jd.NewLedger()
	ledger.Set("tools", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "remove Canva"})
	ledger.Set("kpis", jd.FeedbackEntry{Satisfied: boolPtr(false), Feedback: "add a KPI about response time"})

	first, err := CompilePrompt(doc, ledger, nil)
	require.NoError(t, err)
	second, err := CompilePrompt(doc, ledger, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
