// Package chunker splits normalized document text into overlapping
// token-bounded windows. Token counting uses a stable span tokenizer, so
// chunk boundaries and overlap accounting are reproducible across runs.
package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when the chunk size and overlap cannot
// produce a valid chunking.
var ErrInvalidConfig = errors.New("invalid chunking config")

// TextSpan is one chunk of the input text.
type TextSpan struct {
	// Ordinal is the zero-based position of the chunk in the document.
	Ordinal int
	// Text is the exact slice of the input covered by this chunk.
	Text string
	// TokenCount is the number of tokens in the chunk.
	TokenCount int
	// OverlapTokens is the number of tokens shared with the previous
	// chunk; zero for the first chunk.
	OverlapTokens int
}

// Chunker produces overlapping token windows with a fixed size and overlap.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a chunker. overlap must be non-negative and strictly less
// than chunkSize.
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap (%d) must be less than chunk size (%d)", ErrInvalidConfig, overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits text into ordered overlapping windows. Consecutive chunks
// share exactly the configured overlap tokens (the overlap is a true token
// suffix/prefix continuation, never a duplicated chunk), and concatenating
// the non-overlapping portions reconstructs the input exactly. Text shorter
// than the chunk size yields a single chunk; empty text yields none.
func (c *Chunker) Chunk(text string) []TextSpan {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	stride := c.chunkSize - c.overlap
	var chunks []TextSpan

	for start := 0; ; start += stride {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		overlap := 0
		if len(chunks) > 0 {
			// Shared with the previous window: its end minus our start.
			prev := chunks[len(chunks)-1]
			prevEnd := start - stride + prev.TokenCount
			overlap = prevEnd - start
		}

		chunks = append(chunks, TextSpan{
			Ordinal:       len(chunks),
			Text:          text[tokens[start].Start:tokens[end-1].End],
			TokenCount:    end - start,
			OverlapTokens: overlap,
		})

		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// ChunkSize returns the configured token budget per chunk.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap token count.
func (c *Chunker) Overlap() int { return c.overlap }

// Truncate returns the longest prefix of text containing at most maxTokens
// tokens. Used for context budgeting during retrieval.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := tokenize(text)
	if len(tokens) <= maxTokens {
		return text
	}
	return text[:tokens[maxTokens-1].End]
}
