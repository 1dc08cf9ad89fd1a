package services

import (
	"math"
	"sort"

	"github.com/samjmc/dashchat/internal/core/domain"
	"github.com/samjmc/dashchat/internal/logger"
)

// CosineRanker scores a query embedding against a document corpus with
// cosine similarity. It is a linear scan: O(corpus size x dimension), fine
// for the tens-to-hundreds of documents this system targets. The contract is
// index-agnostic so an ANN-backed ranker can replace it unchanged.
type CosineRanker struct{}

// NewCosineRanker creates a ranker.
func NewCosineRanker() *CosineRanker {
	return &CosineRanker{}
}

// Search returns up to limit documents ranked by descending cosine
// similarity to the query embedding. Documents without an embedding, or with
// a dimension mismatch, are silently skipped. Ties keep corpus order.
func (r *CosineRanker) Search(query []float32, corpus []domain.Document, limit int) []domain.SimilarityResult {
	if len(query) == 0 || limit <= 0 {
		return nil
	}

	results := make([]domain.SimilarityResult, 0, len(corpus))
	for i := range corpus {
		doc := &corpus[i]
		if len(doc.Embedding) == 0 || len(doc.Embedding) != len(query) {
			continue
		}
		results = append(results, domain.SimilarityResult{
			Document: *doc,
			Score:    cosineSimilarity(query, doc.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}

	logger.Debug("Ranked %d/%d documents", len(results), len(corpus))
	return results
}

// cosineSimilarity computes dot(a,b) / (|a| * |b|) in float64.
// A zero-magnitude vector scores 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}
