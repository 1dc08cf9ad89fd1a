package driven

import (
	"context"

	"github.com/samjmc/dashchat/internal/core/domain"
)

// DocumentStore persists the retrieval corpus.
// Documents are append-mostly: there is no update operation beyond the
// store's own UpdatedAt bookkeeping. Implementations must guarantee exactly
// one stored row per create under concurrent callers.
type DocumentStore interface {
	// CreateDocument stores a new document and assigns its ID.
	CreateDocument(ctx context.Context, doc *domain.Document) (*domain.Document, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id int) (*domain.Document, error)

	// ListDocuments returns all documents in creation order.
	// This is the corpus handed to the similarity ranker.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}
