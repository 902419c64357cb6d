// Package memory provides an in-memory analysis store for development and
// tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"jdbuilder/application/ports"
	apperrors "jdbuilder/pkg/errors"
)

// AnalysisStore is a mutex-guarded map keyed by owner then analysis ID.
type AnalysisStore struct {
	mu      sync.RWMutex
	byOwner map[string]map[string]*ports.Analysis
}

// NewAnalysisStore creates an empty store.
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{byOwner: make(map[string]map[string]*ports.Analysis)}
}

// Save inserts or updates an analysis. On update the incoming Version must
// match the stored one; the stored version is then bumped.
func (s *AnalysisStore) Save(_ context.Context, analysis *ports.Analysis) (string, error) {
	if analysis == nil || analysis.OwnerID == "" {
		return "", apperrors.NewValidationError("analysis owner is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owned := s.byOwner[analysis.OwnerID]
	if owned == nil {
		owned = make(map[string]*ports.Analysis)
		s.byOwner[analysis.OwnerID] = owned
	}

	now := time.Now().UTC()
	if analysis.ID == "" {
		analysis.ID = uuid.New().String()
		analysis.Version = 1
		analysis.CreatedAt = now
	} else {
		existing, ok := owned[analysis.ID]
		if !ok {
			return "", apperrors.NewNotFoundError("analysis")
		}
		if analysis.Version != existing.Version {
			return "", apperrors.NewConflictError("analysis was modified by a concurrent request")
		}
		analysis.Version = existing.Version + 1
		analysis.CreatedAt = existing.CreatedAt
	}
	analysis.UpdatedAt = now

	stored := *analysis
	owned[analysis.ID] = &stored
	return analysis.ID, nil
}

// GetByID fetches one analysis scoped to its owner.
func (s *AnalysisStore) GetByID(_ context.Context, ownerID, id string) (*ports.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if analysis, ok := s.byOwner[ownerID][id]; ok {
		copied := *analysis
		return &copied, nil
	}
	return nil, apperrors.NewNotFoundError("analysis")
}

// ListByOwner returns the owner's analyses, most recently updated first,
// optionally filtered by a case-insensitive title search and paged by an
// offset cursor.
func (s *AnalysisStore) ListByOwner(_ context.Context, ownerID string, filter ports.ListFilter) (*ports.AnalysisPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*ports.Analysis
	for _, analysis := range s.byOwner[ownerID] {
		if filter.Search != "" && !matchesSearch(analysis, filter.Search) {
			continue
		}
		copied := *analysis
		items = append(items, &copied)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})

	offset := 0
	if filter.Cursor != "" {
		parsed, err := strconv.Atoi(filter.Cursor)
		if err != nil || parsed < 0 {
			return nil, apperrors.NewValidationError("invalid cursor")
		}
		offset = parsed
	}
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	page := &ports.AnalysisPage{}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = strconv.Itoa(offset + limit)
	} else {
		page.Items = items
	}
	return page, nil
}

// DeleteByID removes one analysis scoped to its owner.
func (s *AnalysisStore) DeleteByID(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byOwner[ownerID][id]; !ok {
		return apperrors.NewNotFoundError("analysis")
	}
	delete(s.byOwner[ownerID], id)
	return nil
}

func matchesSearch(analysis *ports.Analysis, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(analysis.Title), needle) {
		return true
	}
	if analysis.Document != nil && strings.Contains(strings.ToLower(analysis.Document.Summary), needle) {
		return true
	}
	return false
}
