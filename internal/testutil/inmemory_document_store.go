package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/AnserBeg/rent-soft-sub001/internal/domain/document"
	ierr "github.com/AnserBeg/rent-soft-sub001/internal/errors"
	"github.com/AnserBeg/rent-soft-sub001/internal/types"
)

// InMemoryDocumentStore implements document.Repository for tests, keyed the
// way the real table is: (company_id, entity_type, entity_id).
type InMemoryDocumentStore struct {
	mu     sync.RWMutex
	nextID int
	docs   map[string]*document.Document
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{nextID: 1, docs: make(map[string]*document.Document)}
}

func documentKey(companyID int, entityType types.EntityType, entityID string) string {
	return fmt.Sprintf("%d:%s:%s", companyID, entityType, entityID)
}

func (s *InMemoryDocumentStore) Upsert(_ context.Context, doc *document.Document) (*document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := documentKey(doc.CompanyID, doc.EntityType, doc.EntityID)
	clone := *doc
	if existing, ok := s.docs[key]; ok {
		clone.ID = existing.ID
		clone.CreatedAt = existing.CreatedAt
	} else {
		clone.ID = s.nextID
		s.nextID++
	}
	s.docs[key] = &clone

	out := clone
	return &out, nil
}

func (s *InMemoryDocumentStore) ListForRentalOrder(_ context.Context, companyID, rentalOrderID int) ([]*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*document.Document
	for _, doc := range s.docs {
		if doc.CompanyID != companyID || doc.RentalOrderID == nil || *doc.RentalOrderID != rentalOrderID {
			continue
		}
		clone := *doc
		out = append(out, &clone)
	}
	return out, nil
}

func (s *InMemoryDocumentStore) ListUnassigned(_ context.Context, companyID int) ([]*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*document.Document
	for _, doc := range s.docs {
		if doc.CompanyID != companyID || doc.RentalOrderID != nil {
			continue
		}
		clone := *doc
		out = append(out, &clone)
	}
	return out, nil
}

func (s *InMemoryDocumentStore) MarkRemoved(_ context.Context, companyID int, entityType types.EntityType, entityID string, voided, deleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[documentKey(companyID, entityType, entityID)]
	if !ok {
		return ierr.NewErrorf("document %s/%s not found", entityType, entityID).
			Mark(ierr.ErrNotFound)
	}
	doc.IsVoided = voided
	doc.IsDeleted = deleted
	return nil
}

// Get returns a stored document for assertions, or nil.
func (s *InMemoryDocumentStore) Get(companyID int, entityType types.EntityType, entityID string) *document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[documentKey(companyID, entityType, entityID)]
	if !ok {
		return nil
	}
	clone := *doc
	return &clone
}

// Count returns the number of stored documents.
func (s *InMemoryDocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
