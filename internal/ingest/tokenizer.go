package ingest

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer encodes text into model tokens and decodes token slices back
// into text. Chunk boundaries are computed in token space and the chunk
// content is produced by decoding, so counts stay exact for the embedding
// model.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// TiktokenTokenizer wraps a tiktoken encoding.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizerForModel returns the tokenizer matching the embedding model,
// falling back to cl100k_base for models tiktoken does not know.
func NewTokenizerForModel(model string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to load fallback encoding: %w", err)
		}
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

// Encode converts text into token IDs.
func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode converts token IDs back into text.
func (t *TiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
