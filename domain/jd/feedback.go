package jd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FeedbackEntry is one per-section judgement. Satisfied is tri-state:
// nil means the client has not judged the section yet.
type FeedbackEntry struct {
	Satisfied *bool  `json:"satisfied"`
	Feedback  string `json:"feedback"`
}

// KeyedEntry pairs a refinement key with its entry, in ledger order.
type KeyedEntry struct {
	Key   string
	Entry FeedbackEntry
}

// Ledger holds the full set of per-key judgements submitted with one
// refinement request. It preserves the caller's key order because later
// rendering numbers items in that order; a plain Go map would lose it.
type Ledger struct {
	keys    []string
	entries map[string]FeedbackEntry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]FeedbackEntry)}
}

// Set stores an entry, appending the key on first sight.
func (l *Ledger) Set(key string, entry FeedbackEntry) {
	if l.entries == nil {
		l.entries = make(map[string]FeedbackEntry)
	}
	if _, exists := l.entries[key]; !exists {
		l.keys = append(l.keys, key)
	}
	l.entries[key] = entry
}

// Get returns the entry for a key.
func (l *Ledger) Get(key string) (FeedbackEntry, bool) {
	entry, ok := l.entries[key]
	return entry, ok
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.keys)
}

// Entries returns all entries in insertion order.
func (l *Ledger) Entries() []KeyedEntry {
	out := make([]KeyedEntry, 0, len(l.keys))
	for _, key := range l.keys {
		out = append(out, KeyedEntry{Key: key, Entry: l.entries[key]})
	}
	return out
}

// UnsatisfiedEntries filters to entries explicitly marked unsatisfied that
// carry non-blank feedback, preserving insertion order. Entries that are
// unset, satisfied, or unsatisfied-without-comment are not actionable.
func (l *Ledger) UnsatisfiedEntries() []KeyedEntry {
	var out []KeyedEntry
	for _, key := range l.keys {
		entry := l.entries[key]
		if entry.Satisfied == nil || *entry.Satisfied {
			continue
		}
		if strings.TrimSpace(entry.Feedback) == "" {
			continue
		}
		out = append(out, KeyedEntry{Key: key, Entry: entry})
	}
	return out
}

// UnmarshalJSON decodes a JSON object while preserving its key order,
// which encoding/json's map decoding would discard.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("refinements must be a JSON object")
	}

	l.keys = nil
	l.entries = make(map[string]FeedbackEntry)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in refinements", tok)
		}

		var entry FeedbackEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("invalid feedback entry for %q: %w", key, err)
		}
		l.Set(key, entry)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the ledger as a JSON object in insertion order.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range l.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(l.entries[key])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
