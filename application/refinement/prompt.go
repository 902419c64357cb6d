package refinement

import (
	"encoding/json"
	"fmt"
	"strings"

	"jdbuilder/domain/jd"
)

// maxHistoryTurns caps how much prior conversation is replayed to the
// completion service.
const maxHistoryTurns = 6

// ChatTurn is one prior conversation message supplied by the client.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompilePrompt deterministically builds the instruction text for one
// refinement request. With no actionable entries it compiles an echo
// instruction that still includes the full document for verification.
func CompilePrompt(doc *jd.Document, ledger *jd.Ledger, history []ChatTurn) (string, error) {
	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	unsatisfied := ledger.UnsatisfiedEntries()

	var b strings.Builder

	if len(unsatisfied) == 0 {
		b.WriteString("The client reviewed the job description below and requested no changes. ")
		b.WriteString("Return the document unchanged, as a single valid JSON object with exactly the same structure and values.\n\n")
	} else {
		b.WriteString("The client reviewed the job description below and requested changes to specific sections. ")
		b.WriteString("Apply each requested change and return the full updated document.\n\n")
		b.WriteString("Requested changes:\n")
		for i, ke := range unsatisfied {
			fmt.Fprintf(&b, "%d. Section: %s\n", i+1, jd.DisplayName(ke.Key))
			fmt.Fprintf(&b, "   Feedback: %s\n", ke.Entry.Feedback)
			fmt.Fprintf(&b, "   Action: %s\n", deriveAction(ke.Entry.Feedback))
		}
		b.WriteString("\n")
	}

	b.WriteString("Hard constraints:\n")
	b.WriteString("- Sections the client marked as satisfied, and sections not listed above, must be returned byte-for-byte unchanged.\n")
	b.WriteString("- The output must be a single valid JSON object with exactly the same field names and nesting as the document below. Only values may change.\n")
	b.WriteString("- When a change removes a named concept, purge that concept from every list-type section where it could appear (responsibilities, skills, tools, kpis, sample week) so the document stays internally consistent.\n\n")

	if len(history) > 0 {
		turns := history
		if len(turns) > maxHistoryTurns {
			turns = turns[len(turns)-maxHistoryTurns:]
		}
		b.WriteString("Recent conversation for context:\n")
		for _, turn := range turns {
			label := "User"
			if strings.EqualFold(turn.Role, "assistant") {
				label = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", label, turn.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Current document:\n")
	b.Write(docJSON)
	b.WriteString("\n")

	return b.String(), nil
}
