// Package chunker splits long text into overlapping segments at natural
// boundaries for embedding and retrieval.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/samjmc/dashchat/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// boundaryLookback bounds how far back from the tentative end a paragraph or
// sentence break may be and still be accepted.
const boundaryLookback = 200

// Chunker splits text into overlapping chunks, preferring paragraph breaks,
// then sentence breaks, then word breaks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must stay below the chunk size or advancement stalls.
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split breaks text into trimmed, overlapping chunks. Empty input yields nil.
func (c *Chunker) Split(text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	var chunks []domain.Chunk
	pos := 0

	for pos < len(text) {
		end := pos + c.chunkSize
		if end > len(text) {
			end = len(text)
		}

		// Mid-text chunks end at the nearest natural boundary behind the
		// tentative end: paragraph, then sentence, then word.
		if end < len(text) {
			end = c.breakPoint(text, pos, end)
		}

		content := strings.TrimSpace(text[pos:end])
		if content != "" {
			chunks = append(chunks, domain.Chunk{
				ID:      uuid.New().String(),
				Content: content,
				Start:   pos,
				End:     end,
			})
		}

		if end >= len(text) {
			break
		}

		// Advance with overlap. The next start must move strictly past the
		// current one or a short boundary chunk would loop forever.
		next := end - c.overlap
		if next <= pos {
			next = end
		}
		pos = next
	}

	return chunks
}

// SplitStrings is Split returning only the chunk contents.
func (c *Chunker) SplitStrings(text string) []string {
	chunks := c.Split(text)
	if len(chunks) == 0 {
		return nil
	}

	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Content
	}
	return out
}

// breakPoint searches backward from the tentative end for the best natural
// boundary after pos. Paragraph and sentence breaks are only accepted within
// the lookback window; a word break anywhere after pos is acceptable.
func (c *Chunker) breakPoint(text string, pos, end int) int {
	if para := strings.LastIndex(text[:end], "\n\n"); para > pos && para > end-boundaryLookback {
		return para + 2
	}
	if sentence := strings.LastIndex(text[:end], ". "); sentence > pos && sentence > end-boundaryLookback {
		return sentence + 2
	}
	if word := strings.LastIndex(text[:end], " "); word > pos {
		return word + 1
	}
	return end
}
