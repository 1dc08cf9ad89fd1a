package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Documents keep their insertion order, so ListDocuments returns the corpus
// in creation order.
type DocumentStore struct {
	mu     sync.RWMutex
	docs   []domain.Document
	nextID int
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{nextID: 1}
}

// CreateDocument stores a document and assigns it the next sequential ID.
func (s *DocumentStore) CreateDocument(_ context.Context, doc *domain.Document) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := *doc
	d.ID = s.nextID
	s.nextID++
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	s.docs = append(s.docs, d)

	stored := d
	return &stored, nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id int) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.docs {
		if s.docs[i].ID == id {
			doc := s.docs[i]
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListDocuments returns all documents in creation order.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Document(nil), s.docs...), nil
}
