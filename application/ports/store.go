package ports

import (
	"context"
	"time"

	"jdbuilder/domain/jd"
)

// Analysis is a persisted job-description package owned by a user.
type Analysis struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"ownerId"`
	Title     string       `json:"title"`
	Document  *jd.Document `json:"document"`
	Version   int          `json:"version"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// ListFilter narrows and pages a ListByOwner query.
type ListFilter struct {
	Search string
	Limit  int
	Cursor string
}

// AnalysisPage is one page of list results.
type AnalysisPage struct {
	Items      []*Analysis `json:"items"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

// AnalysisStore is the persistence collaborator: a document store keyed by
// id with owner-scoped queries. Save enforces optimistic concurrency: a
// non-zero Version must match the stored version or the save is rejected
// with a conflict.
type AnalysisStore interface {
	Save(ctx context.Context, analysis *Analysis) (string, error)
	GetByID(ctx context.Context, ownerID, id string) (*Analysis, error)
	ListByOwner(ctx context.Context, ownerID string, filter ListFilter) (*AnalysisPage, error)
	DeleteByID(ctx context.Context, ownerID, id string) error
}
