package jd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestLedger_PreservesInsertionOrder(t *testing.T) {
	raw := []byte(`{
		"tools": {"satisfied": false, "feedback": "remove Canva"},
		"role": {"satisfied": true, "feedback": ""},
		"skills": {"satisfied": false, "feedback": "focus more on typography"}
	}`)

	var ledger Ledger
	require.NoError(t, json.Unmarshal(raw, &ledger))

	entries := ledger.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "tools", entries[0].Key)
	assert.Equal(t, "role", entries[1].Key)
	assert.Equal(t, "skills", entries[2].Key)
}

func TestLedger_UnsatisfiedEntries(t *testing.T) {
	ledger := NewLedger()
	ledger.Set("role", FeedbackEntry{Satisfied: boolPtr(true), Feedback: "looks great"})
	ledger.Set("tools", FeedbackEntry{Satisfied: boolPtr(false), Feedback: "remove Canva"})
	ledger.Set("skills", FeedbackEntry{Satisfied: boolPtr(false), Feedback: "   "})
	ledger.Set("kpis", FeedbackEntry{Satisfied: nil, Feedback: "tighten these"})
	ledger.Set("outcomes", FeedbackEntry{Satisfied: boolPtr(false), Feedback: "add a launch outcome"})

	unsatisfied := ledger.UnsatisfiedEntries()
	require.Len(t, unsatisfied, 2)
	assert.Equal(t, "tools", unsatisfied[0].Key)
	assert.Equal(t, "outcomes", unsatisfied[1].Key)
}

func TestLedger_AllSatisfiedEquivalentToEmpty(t *testing.T) {
	empty := NewLedger()

	satisfied := NewLedger()
	satisfied.Set("role", FeedbackEntry{Satisfied: boolPtr(true), Feedback: ""})
	satisfied.Set("tools", FeedbackEntry{Satisfied: boolPtr(true), Feedback: "perfect"})

	assert.Empty(t, empty.UnsatisfiedEntries())
	assert.Empty(t, satisfied.UnsatisfiedEntries())
}

func TestLedger_MarshalRoundTrip(t *testing.T) {
	ledger := NewLedger()
	ledger.Set("tools", FeedbackEntry{Satisfied: boolPtr(false), Feedback: "remove Canva"})
	ledger.Set("role", FeedbackEntry{Satisfied: boolPtr(true), Feedback: ""})

	raw, err := json.Marshal(ledger)
	require.NoError(t, err)

	var decoded Ledger
	require.NoError(t, json.Unmarshal(raw, &decoded))

	entries := decoded.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "tools", entries[0].Key)
	assert.Equal(t, "remove Canva", entries[0].Entry.Feedback)
	assert.Equal(t, "role", entries[1].Key)
}

func TestLedger_RejectsNonObject(t *testing.T) {
	var ledger Ledger
	assert.Error(t, json.Unmarshal([]byte(`["tools"]`), &ledger))
	assert.Error(t, json.Unmarshal([]byte(`"tools"`), &ledger))
}

func TestLedger_SetOverwritesWithoutReordering(t *testing.T) {
	ledger := NewLedger()
	ledger.Set("tools", FeedbackEntry{Satisfied: boolPtr(false), Feedback: "first"})
	ledger.Set("role", FeedbackEntry{Satisfied: boolPtr(false), Feedback: "second"})
	ledger.Set("tools", FeedbackEntry{Satisfied: boolPtr(false), Feedback: "third"})

	entries := ledger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "tools", entries[0].Key)
	assert.Equal(t, "third", entries[0].Entry.Feedback)
}
