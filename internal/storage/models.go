package storage

import "time"

// Collection groups documents under a named knowledge base.
type Collection struct {
	ID          string // UUID
	Name        string
	Description string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// Document represents a source file registered in a collection.
type Document struct {
	ID           string // UUID
	CollectionID string // UUID (foreign key to kb_collections.id)
	ExternalID   string // Stable source identifier (absolute file path)
	Title        string
	DocType      string // "pdf", "markdown", "text", "csv", "excel"
	ContentHash  string // SHA256 hex string of the source file
	IsIndexed    bool   // True only after every chunk is embedded and persisted
	IsActive     bool   // Soft-delete flag; inactive documents are excluded from search
	Metadata     map[string]any
	IndexedAt    *time.Time
	CreatedAt    time.Time
}

// Chunk represents a token-bounded slice of a document with its embedding.
type Chunk struct {
	ID         string // UUID
	DocumentID string // UUID (foreign key to kb_documents.id)
	ChunkIndex int    // Index within document (starts at 0)
	Content    string
	TokenCount int
	Embedding  []float32
	Metadata   map[string]any
}

// SearchResult is a chunk returned from similarity search, joined with
// its document title for source attribution.
type SearchResult struct {
	ChunkID       string
	DocumentID    string
	DocumentTitle string
	ChunkIndex    int
	Content       string
	Distance      float64 // Cosine distance; lower is more similar
}
