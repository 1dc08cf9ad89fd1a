package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLLMUnavailable indicates the completion provider is not configured
	// or failed. Chat degrades to a fixed apology rather than surfacing this.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Retrieval is skipped without embeddings; this is never fatal for a request.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrBridgeUnavailable indicates the dashboard extension bridge is absent
	// or did not initialise. The detector falls through to the next tier.
	ErrBridgeUnavailable = errors.New("dashboard bridge unavailable")

	// ErrUntrustedOrigin indicates a bridge message arrived from an origin
	// outside the configured allow-list.
	ErrUntrustedOrigin = errors.New("untrusted message origin")
)
