package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"docbot/internal/storage"
)

// Embedder generates an embedding vector for a single text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// TextExtractor converts a source file into plain text and reports the
// detected document type.
type TextExtractor interface {
	ExtractFile(path string) (text, docType string, err error)
}

// Pipeline ingests source documents into the knowledge base with
// hash-gated deduplication. A document is only marked indexed after every
// chunk has been embedded and persisted; rerunning the same call after a
// failure converges to the fully indexed state.
//
// Concurrent ingestion of the same file is not serialized here; the
// UNIQUE (collection_id, external_id) constraint surfaces duplicate
// creation, but callers should ingest a given path from one goroutine at
// a time.
type Pipeline struct {
	collections storage.CollectionStore
	documents   storage.DocumentStore
	chunks      storage.ChunkStore
	extractor   TextExtractor
	embedder    Embedder
	tokenizer   Tokenizer
	model       string // embedding model name recorded in document metadata
	logger      *slog.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	collections storage.CollectionStore,
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	extractor TextExtractor,
	embedder Embedder,
	tokenizer Tokenizer,
	model string,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		collections: collections,
		documents:   documents,
		chunks:      chunks,
		extractor:   extractor,
		embedder:    embedder,
		tokenizer:   tokenizer,
		model:       model,
		logger:      logger,
	}
}

// Ingest processes a single file into the named collection.
//
// Already-indexed documents with an unchanged content hash are skipped
// unless opts.Force is set. Changed or partially indexed documents have
// their old chunks deleted before reinsertion. On an embedding or
// storage failure the document stays is_indexed=false; chunks from
// earlier batches may remain persisted but are never served because
// search filters on is_indexed.
func (p *Pipeline) Ingest(ctx context.Context, path string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	// Reject impossible chunking before touching the file.
	if opts.OverlapTokens >= opts.MaxTokens {
		return nil, fmt.Errorf("%w: overlap (%d) must be less than max tokens (%d)",
			ErrInvalidChunking, opts.OverlapTokens, opts.MaxTokens)
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.CollectionName == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	externalID, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	if _, err := os.Stat(externalID); err != nil {
		return nil, fmt.Errorf("file not found: %s: %w", externalID, err)
	}

	logger := p.logger.With("file", externalID, "collection", opts.CollectionName)

	fileHash, err := HashFile(externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", externalID, err)
	}

	text, detectedType, err := p.extractor.ExtractFile(externalID)
	if err != nil {
		return nil, err
	}

	description := opts.CollectionDescription
	if description == "" {
		description = fmt.Sprintf("Auto-created collection for %s", opts.CollectionName)
	}
	collection, err := p.collections.GetOrCreate(ctx, opts.CollectionName, description)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collection %s: %w", opts.CollectionName, err)
	}

	doc, err := p.documents.GetByExternalID(ctx, collection.ID, externalID)
	if err != nil && err != storage.ErrNotFound {
		return nil, fmt.Errorf("failed to look up document %s: %w", externalID, err)
	}

	if doc != nil {
		switch {
		case doc.IsIndexed && doc.ContentHash == fileHash && !opts.Force:
			logger.Info("document already indexed and unchanged, skipping",
				"document_id", doc.ID)
			return &Result{DocumentID: doc.ID, Skipped: true}, nil

		case doc.IsIndexed && doc.ContentHash != fileHash:
			logger.Info("document content changed, reindexing",
				"document_id", doc.ID,
				"old_hash", shortHash(doc.ContentHash),
				"new_hash", shortHash(fileHash))

		case !doc.IsIndexed:
			logger.Info("document partially indexed, reprocessing",
				"document_id", doc.ID)

		default:
			logger.Info("forced reindex requested", "document_id", doc.ID)
		}

		if err := p.chunks.DeleteByDocument(ctx, doc.ID); err != nil {
			return nil, fmt.Errorf("failed to delete old chunks for %s: %w", doc.ID, err)
		}
	} else {
		title := opts.Title
		if title == "" {
			title = filepath.Base(externalID)
		}
		docType := opts.DocType
		if docType == "" {
			docType = detectedType
		}

		doc = &storage.Document{
			ID:           uuid.New().String(),
			CollectionID: collection.ID,
			ExternalID:   externalID,
			Title:        title,
			DocType:      docType,
			ContentHash:  fileHash,
			IsIndexed:    false,
			IsActive:     true,
			Metadata:     opts.Metadata,
		}
		if err := p.documents.Insert(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to create document for %s: %w", externalID, err)
		}
		logger.Info("document created", "document_id", doc.ID, "title", title)
	}

	chunks, err := ChunkText(text, opts.MaxTokens, opts.OverlapTokens, p.tokenizer)
	if err != nil {
		return nil, err
	}
	logger.Info("text chunked", "chunks", len(chunks))

	if err := p.embedAndInsert(ctx, doc.ID, chunks, opts.BatchSize); err != nil {
		logger.Error("ingestion failed, document left unindexed",
			"document_id", doc.ID, "error", err)
		return nil, fmt.Errorf("failed to ingest %s: %w", externalID, err)
	}

	// Single commit point: only flipped after every chunk persisted.
	err = p.documents.MarkIndexed(ctx, doc.ID, fileHash, map[string]any{
		"total_chunks":    len(chunks),
		"embedding_model": p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark document %s indexed: %w", doc.ID, err)
	}

	logger.Info("document indexed", "document_id", doc.ID, "chunks", len(chunks))
	return &Result{DocumentID: doc.ID, TotalChunks: len(chunks)}, nil
}

// embedAndInsert embeds chunks one at a time and persists them in batches.
// The first exhausted-retries failure aborts the document; batches already
// committed stay in place for the next attempt to overwrite.
func (p *Pipeline) embedAndInsert(ctx context.Context, documentID string, chunks []TextChunk, batchSize int) error {
	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		rows := make([]*storage.Chunk, 0, end-i)
		for _, ch := range chunks[i:end] {
			embedding, err := p.embedder.EmbedText(ctx, ch.Content)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d: %w", ch.Index, err)
			}
			if len(embedding) == 0 {
				return fmt.Errorf("empty embedding returned for chunk %d", ch.Index)
			}

			rows = append(rows, &storage.Chunk{
				ID:         uuid.New().String(),
				DocumentID: documentID,
				ChunkIndex: ch.Index,
				Content:    ch.Content,
				TokenCount: ch.TokenCount,
				Embedding:  embedding,
			})
		}

		if err := p.chunks.InsertBatch(ctx, rows); err != nil {
			return fmt.Errorf("failed to insert chunk batch starting at %d: %w", i, err)
		}
	}

	return nil
}

func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
