package refinement

import (
	"fmt"

	"github.com/google/go-cmp/cmp"

	"jdbuilder/domain/jd"
)

// ChangeRecord reports that the value at a resolved section path actually
// differed after refinement, together with the ledger key and feedback text
// that motivated the change.
type ChangeRecord struct {
	Section       string `json:"section"`
	RefinementKey string `json:"refinementKey"`
	Feedback      string `json:"feedback"`
}

// DetectChanges compares the pre- and post-refinement documents at every
// section path named by the ledger's unsatisfied entries, in ledger order.
// A key that fans out to several paths only reports the paths that really
// changed; unchanged siblings are silently skipped. Presence or absence of
// any structural difference at the path is the whole signal; no
// element-level diffing is attempted.
func DetectChanges(oldDoc, newDoc *jd.Document, ledger *jd.Ledger) ([]ChangeRecord, error) {
	oldMap, err := oldDoc.AsMap()
	if err != nil {
		return nil, fmt.Errorf("flatten old document: %w", err)
	}
	newMap, err := newDoc.AsMap()
	if err != nil {
		return nil, fmt.Errorf("flatten new document: %w", err)
	}

	var records []ChangeRecord
	for _, ke := range ledger.UnsatisfiedEntries() {
		for _, path := range jd.SectionPathsFor(ke.Key) {
			oldVal, oldOK := jd.ResolvePath(oldMap, path)
			newVal, newOK := jd.ResolvePath(newMap, path)
			if oldOK == newOK && cmp.Equal(oldVal, newVal) {
				continue
			}
			records = append(records, ChangeRecord{
				Section:       path,
				RefinementKey: ke.Key,
				Feedback:      ke.Entry.Feedback,
			})
		}
	}
	return records, nil
}
