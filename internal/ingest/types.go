package ingest

const (
	defaultMaxTokens     = 500
	defaultOverlapTokens = 50
	defaultBatchSize     = 10
)

// Options control a single document ingestion run.
type Options struct {
	CollectionName        string
	CollectionDescription string

	// Title defaults to the file base name when empty.
	Title string
	// DocType defaults to the type detected by the extractor registry.
	DocType  string
	Metadata map[string]any

	// MaxTokens is the chunk size ceiling in tokens (default 500).
	MaxTokens int
	// OverlapTokens is the token overlap between consecutive chunks
	// (default 50). Set to -1 for no overlap; 0 means unset.
	OverlapTokens int
	// BatchSize is the number of chunks embedded and persisted per batch (default 10).
	BatchSize int

	// Force reindexes the document even when it is already indexed with
	// an unchanged content hash.
	Force bool
}

func (o Options) withDefaults() Options {
	if o.MaxTokens == 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.OverlapTokens == 0 {
		o.OverlapTokens = defaultOverlapTokens
	}
	if o.OverlapTokens < 0 {
		o.OverlapTokens = 0
	}
	if o.BatchSize == 0 {
		o.BatchSize = defaultBatchSize
	}
	return o
}

// Result summarizes a single document ingestion.
type Result struct {
	DocumentID  string
	Skipped     bool
	TotalChunks int
}
