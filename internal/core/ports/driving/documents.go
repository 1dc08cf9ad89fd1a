package driving

import (
	"context"

	"github.com/samjmc/dashchat/internal/core/domain"
)

// DocumentService manages the retrieval corpus.
type DocumentService interface {
	// Add chunks, embeds and stores a document. A failed embedding stores
	// the document without one; it is then invisible to Search.
	Add(ctx context.Context, title, content string, metadata map[string]any) (*domain.Document, error)

	// List returns the stored corpus in creation order.
	List(ctx context.Context) ([]domain.Document, error)

	// Search embeds the query and returns the most similar documents,
	// descending by score. An embedding failure yields empty results.
	Search(ctx context.Context, query string, limit int) ([]domain.SimilarityResult, error)
}
