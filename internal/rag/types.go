package rag

import "fmt"

// FilterLevel selects the tone of the system prompt used for answers.
type FilterLevel string

const (
	FilterConservative FilterLevel = "conservative"
	FilterModerate     FilterLevel = "moderate"
	FilterLiberal      FilterLevel = "liberal"
)

// ParseFilterLevel validates a filter level string.
func ParseFilterLevel(s string) (FilterLevel, error) {
	switch FilterLevel(s) {
	case FilterConservative, FilterModerate, FilterLiberal:
		return FilterLevel(s), nil
	default:
		return "", fmt.Errorf("unknown filter level %q (want conservative, moderate or liberal)", s)
	}
}

// AskRequest is a question against a collection.
type AskRequest struct {
	Question   string
	Collection string
	// K is the number of chunks to retrieve (default 5, max 20).
	K           int
	FilterLevel FilterLevel
}

// Source identifies a chunk used to ground an answer.
type Source struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float64 `json:"distance"`
}

// AskResponse is a generated answer with its grounding sources.
type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Cached  bool     `json:"cached"`
}
