package domain

import "time"

// Document is a knowledge-base entry used for retrieval augmentation.
// Documents are owned by the document store and are immutable once created
// except for UpdatedAt bookkeeping.
type Document struct {
	// ID is the unique identifier, assigned by the store on creation.
	ID int

	// Title is the human-readable title.
	Title string

	// Content is the full text content.
	Content string

	// Embedding is the vector representation for similarity search.
	// Nil when embedding generation failed; such documents are skipped by
	// the ranker, never treated as an error.
	Embedding []float32

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was created.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// Chunk is a substring of a document's content with character offsets.
// Chunks are ephemeral: produced by the chunker and consumed immediately by
// the embedding service, never persisted.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// Content is the trimmed text of this chunk.
	Content string

	// Start is the character offset of the chunk within the source text.
	Start int

	// End is the character offset one past the chunk within the source text.
	End int
}

// SimilarityResult pairs a document with its similarity to a query embedding.
// Score is cosine similarity in [-1, 1]. Results are ephemeral and sorted
// descending by score.
type SimilarityResult struct {
	// Document is the matched document.
	Document Document

	// Score is the cosine similarity against the query embedding.
	Score float64
}
