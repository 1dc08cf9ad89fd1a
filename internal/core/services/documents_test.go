package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samjmc/dashchat/internal/core/domain"
)

// stubDocStore is a minimal in-memory document store for service tests.
type stubDocStore struct {
	docs   []domain.Document
	nextID int
}

func (s *stubDocStore) CreateDocument(_ context.Context, doc *domain.Document) (*domain.Document, error) {
	s.nextID++
	d := *doc
	d.ID = s.nextID
	s.docs = append(s.docs, d)
	return &d, nil
}

func (s *stubDocStore) GetDocument(_ context.Context, id int) (*domain.Document, error) {
	for i := range s.docs {
		if s.docs[i].ID == id {
			return &s.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubDocStore) ListDocuments(context.Context) ([]domain.Document, error) {
	return append([]domain.Document(nil), s.docs...), nil
}

// stubEmbedder maps known texts to fixed vectors.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	batches int
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.batches++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{1, 0, 0}
		}
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int            { return 3 }
func (e *stubEmbedder) ModelName() string          { return "stub" }
func (e *stubEmbedder) Ping(context.Context) error { return nil }
func (e *stubEmbedder) Close() error               { return nil }

func TestDocumentAdd_StoresEmbedding(t *testing.T) {
	store := &stubDocStore{}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"Bar charts compare categories.": {0, 1, 0},
	}}
	svc := NewDocumentService(store, embedder, nil)

	doc, err := svc.Add(context.Background(), "Bars", "Bar charts compare categories.", nil)

	require.NoError(t, err)
	assert.NotZero(t, doc.ID)
	assert.Equal(t, []float32{0, 1, 0}, doc.Embedding)
	assert.NotNil(t, doc.Metadata)
}

func TestDocumentAdd_EmptyContentRejected(t *testing.T) {
	svc := NewDocumentService(&stubDocStore{}, &stubEmbedder{}, nil)

	_, err := svc.Add(context.Background(), "Empty", "   \n ", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentAdd_EmbeddingFailureStoresUnembedded(t *testing.T) {
	store := &stubDocStore{}
	embedder := &stubEmbedder{err: errors.New("provider down")}
	svc := NewDocumentService(store, embedder, nil)

	doc, err := svc.Add(context.Background(), "Bars", "content", nil)

	require.NoError(t, err, "ingest must survive embedding outages")
	assert.Nil(t, doc.Embedding)
}

func TestDocumentAdd_LongContentMeanPoolsChunks(t *testing.T) {
	store := &stubDocStore{}
	embedder := &stubEmbedder{}
	svc := NewDocumentService(store, embedder, nil)

	long := strings.Repeat("sentence about dashboards. ", 100)
	doc, err := svc.Add(context.Background(), "Long", long, nil)

	require.NoError(t, err)
	require.Len(t, doc.Embedding, 3)
	// Every chunk maps to the same unit vector, so pooling preserves it.
	assert.InDelta(t, 1.0, float64(doc.Embedding[0]), 1e-6)
}

func TestDocumentSearch_RanksByRelevance(t *testing.T) {
	store := &stubDocStore{}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"about bars":  {0, 1, 0},
		"about lines": {0, 0, 1},
		"bars please": {0, 1, 0},
	}}
	svc := NewDocumentService(store, embedder, nil)

	_, err := svc.Add(context.Background(), "Bars", "about bars", nil)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "Lines", "about lines", nil)
	require.NoError(t, err)

	results, err := svc.Search(context.Background(), "bars please", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Bars", results[0].Document.Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestDocumentSearch_NoEmbedderYieldsNoResults(t *testing.T) {
	svc := NewDocumentService(&stubDocStore{}, nil, nil)

	results, err := svc.Search(context.Background(), "anything", 3)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestDocumentSearch_EmbeddingFailureYieldsNoResults(t *testing.T) {
	svc := NewDocumentService(&stubDocStore{}, &stubEmbedder{err: errors.New("down")}, nil)

	results, err := svc.Search(context.Background(), "anything", 3)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestMeanPool_SkipsMismatchedVectors(t *testing.T) {
	pooled := meanPool([][]float32{
		{2, 4},
		{0, 0, 0},
		{4, 8},
	})
	assert.Equal(t, []float32{3, 6}, pooled)
}
