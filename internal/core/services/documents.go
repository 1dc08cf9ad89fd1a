package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/samjmc/dashchat/internal/chunker"
	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/core/ports/driven"
	"github.com/samjmc/dashchat/internal/core/ports/driving"
	"github.com/samjmc/dashchat/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DefaultSearchLimit is the number of documents retrieved for augmentation.
const DefaultSearchLimit = 3

// DocumentService manages the retrieval corpus: ingestion (chunk, embed,
// store) and similarity search.
type DocumentService struct {
	store     driven.DocumentStore
	embedding driven.EmbeddingService
	chunker   *chunker.Chunker
	ranker    *CosineRanker
}

// NewDocumentService creates a document service. The embedding service is
// optional (can be nil); without it documents are stored unembedded and
// Search returns no results.
func NewDocumentService(
	store driven.DocumentStore,
	embedding driven.EmbeddingService,
	ch *chunker.Chunker,
) *DocumentService {
	if ch == nil {
		ch = chunker.New()
	}
	return &DocumentService{
		store:     store,
		embedding: embedding,
		chunker:   ch,
		ranker:    NewCosineRanker(),
	}
}

// Add chunks, embeds and stores a document. Embedding failures degrade to an
// unembedded document rather than failing the ingest: such documents are
// simply invisible to similarity search.
func (s *DocumentService) Add(
	ctx context.Context, title, content string, metadata map[string]any,
) (*domain.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: document content must not be empty", domain.ErrInvalidInput)
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}

	doc := &domain.Document{
		Title:    title,
		Content:  content,
		Metadata: metadata,
	}

	if embedding, err := s.embedContent(ctx, content); err != nil {
		logger.Warn("Embedding failed for %q, storing without embedding: %v", title, err)
	} else {
		doc.Embedding = embedding
	}

	stored, err := s.store.CreateDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	logger.Debug("Stored document %d (%q, embedded=%t)", stored.ID, title, stored.Embedding != nil)
	return stored, nil
}

// List returns the stored corpus in creation order.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx)
}

// Search embeds the query and ranks the corpus. A missing or failing
// embedding service yields empty results, never an error for the caller's
// request.
func (s *DocumentService) Search(
	ctx context.Context, query string, limit int,
) ([]domain.SimilarityResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	embedding, err := s.embedContent(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed, skipping retrieval: %v", err)
		return nil, nil
	}

	corpus, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return s.ranker.Search(embedding, corpus, limit), nil
}

// embedContent chunks the text, embeds each chunk and mean-pools the chunk
// vectors into a single embedding. Short texts produce one chunk, so this is
// a plain embed in the common case.
func (s *DocumentService) embedContent(ctx context.Context, text string) ([]float32, error) {
	if s.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	chunks := s.chunker.SplitStrings(normaliseWhitespace(text))
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: nothing to embed", domain.ErrInvalidInput)
	}

	vectors, err := s.embedding.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	if len(vectors) == 1 {
		return vectors[0], nil
	}

	return meanPool(vectors), nil
}

// meanPool averages per-chunk embeddings into one document embedding.
func meanPool(vectors [][]float32) []float32 {
	pooled := make([]float32, len(vectors[0]))
	n := 0
	for _, v := range vectors {
		if len(v) != len(pooled) {
			continue
		}
		for i, x := range v {
			pooled[i] += x
		}
		n++
	}
	if n == 0 {
		return nil
	}
	for i := range pooled {
		pooled[i] /= float32(n)
	}
	return pooled
}

// normaliseWhitespace collapses runs of whitespace before embedding.
func normaliseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
