package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks docbot/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// InsertBatch inserts chunks in a single transaction.
	// Each chunk.ID must be set (UUID) before calling this method.
	InsertBatch(ctx context.Context, chunks []*Chunk) error
	// DeleteByDocument deletes all chunks for a given document ID.
	DeleteByDocument(ctx context.Context, documentID string) error
	// CountByDocument returns the number of stored chunks for a document.
	CountByDocument(ctx context.Context, documentID string) (int, error)
	// Search returns the chunks nearest to the query embedding by cosine
	// distance, restricted to indexed, active documents of the collection.
	Search(ctx context.Context, collectionID string, embedding []float32, limit int) ([]*SearchResult, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertBatch inserts chunks in a single transaction so a batch either
// lands whole or not at all.
func (r *ChunkRepo) InsertBatch(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO kb_chunks (id, document_id, chunk_index, content, token_count, embedding, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, chunk := range chunks {
		metadata, err := json.Marshal(orEmpty(chunk.Metadata))
		if err != nil {
			return fmt.Errorf("failed to encode chunk %d metadata: %w", chunk.ChunkIndex, err)
		}

		_, err = stmt.ExecContext(ctx,
			chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content,
			chunk.TokenCount, pgvector.NewVector(chunk.Embedding), metadata,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunk batch: %w", err)
	}

	return nil
}

// DeleteByDocument deletes all chunks for a given document ID.
// Used when re-indexing a document to remove old chunks before inserting new ones.
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM kb_chunks WHERE document_id = $1", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by document: %w", err)
	}
	return nil
}

// CountByDocument returns the number of stored chunks for a document.
func (r *ChunkRepo) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM kb_chunks WHERE document_id = $1",
		documentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// Search returns the chunks nearest to the query embedding by cosine
// distance. Only chunks of indexed, active documents are considered, so
// partially ingested documents never leak into answers.
func (r *ChunkRepo) Search(ctx context.Context, collectionID string, embedding []float32, limit int) ([]*SearchResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.document_id, d.title, c.chunk_index, c.content, c.embedding <=> $2 AS distance
		 FROM kb_chunks c
		 JOIN kb_documents d ON d.id = c.document_id
		 WHERE d.collection_id = $1 AND d.is_indexed AND d.is_active
		 ORDER BY c.embedding <=> $2
		 LIMIT $3`,
		collectionID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []*SearchResult
	for rows.Next() {
		var res SearchResult
		if err := rows.Scan(&res.ChunkID, &res.DocumentID, &res.DocumentTitle,
			&res.ChunkIndex, &res.Content, &res.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, &res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return results, nil
}
