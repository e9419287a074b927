package ingest

import (
	"errors"
	"fmt"
)

// ErrInvalidChunking is returned for chunking parameters that can never
// terminate or produce valid chunks. Surfaced before any file I/O.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

// TextChunk is a token-bounded slice of a document.
type TextChunk struct {
	Index      int
	Content    string
	TokenCount int
}

// ChunkText splits text into chunks of at most maxTokens tokens with
// overlapTokens tokens shared between consecutive chunks. Chunk content
// is the decoded token slice, so token counts are exact for the model
// behind the tokenizer. Output is deterministic for fixed inputs.
func ChunkText(text string, maxTokens, overlapTokens int, tokenizer Tokenizer) ([]TextChunk, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidChunking, maxTokens)
	}
	if overlapTokens < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidChunking, overlapTokens)
	}
	// overlap >= max would make the window stop advancing
	if overlapTokens >= maxTokens {
		return nil, fmt.Errorf("%w: overlap (%d) must be less than max tokens (%d)",
			ErrInvalidChunking, overlapTokens, maxTokens)
	}

	tokens := tokenizer.Encode(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	var chunks []TextChunk
	for start := 0; start < len(tokens); start += maxTokens - overlapTokens {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		slice := tokens[start:end]
		chunks = append(chunks, TextChunk{
			Index:      len(chunks),
			Content:    tokenizer.Decode(slice),
			TokenCount: len(slice),
		})
	}

	return chunks, nil
}
