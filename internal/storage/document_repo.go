package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks docbot/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// GetByExternalID gets a document by collection ID and external ID.
	// Returns nil and ErrNotFound if not found.
	GetByExternalID(ctx context.Context, collectionID, externalID string) (*Document, error)
	// Insert inserts a new document row. The doc.ID must be set (UUID).
	Insert(ctx context.Context, doc *Document) error
	// MarkIndexed flips is_indexed, records the content hash and indexing
	// timestamp, and merges the given metadata. The single commit point of
	// an ingestion run.
	MarkIndexed(ctx context.Context, id, contentHash string, metadata map[string]any) error
	// MarkUnindexed flips is_indexed back off so the next ingestion run
	// reprocesses the document. Returns ErrNotFound for an unknown ID.
	MarkUnindexed(ctx context.Context, id string) error
	// ListByCollection returns all documents in a collection, newest first.
	ListByCollection(ctx context.Context, collectionID string) ([]*Document, error)
	// GetByIDPrefix gets the document whose ID starts with the given
	// prefix. Returns ErrNotFound when no document matches.
	GetByIDPrefix(ctx context.Context, prefix string) (*Document, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = `id, collection_id, external_id, title, doc_type, content_hash,
	is_indexed, is_active, metadata, indexed_at, created_at`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	var doc Document
	var metadata []byte
	var indexedAt sql.NullTime

	err := row.Scan(&doc.ID, &doc.CollectionID, &doc.ExternalID, &doc.Title,
		&doc.DocType, &doc.ContentHash, &doc.IsIndexed, &doc.IsActive,
		&metadata, &indexedAt, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode document metadata: %w", err)
	}
	if indexedAt.Valid {
		doc.IndexedAt = &indexedAt.Time
	}

	return &doc, nil
}

// GetByExternalID gets a document by collection ID and external ID.
// Returns nil and ErrNotFound if not found.
func (r *DocumentRepo) GetByExternalID(ctx context.Context, collectionID, externalID string) (*Document, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM kb_documents WHERE collection_id = $1 AND external_id = $2",
		collectionID, externalID,
	)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return doc, nil
}

// Insert inserts a new document row. The doc.ID must be set (UUID).
// A concurrent insert of the same (collection_id, external_id) surfaces
// as a unique constraint violation.
func (r *DocumentRepo) Insert(ctx context.Context, doc *Document) error {
	metadata, err := json.Marshal(orEmpty(doc.Metadata))
	if err != nil {
		return fmt.Errorf("failed to encode document metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO kb_documents (id, collection_id, external_id, title, doc_type, content_hash, is_indexed, is_active, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.CollectionID, doc.ExternalID, doc.Title, doc.DocType,
		doc.ContentHash, doc.IsIndexed, doc.IsActive, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return nil
}

// MarkIndexed flips is_indexed, records the content hash and indexing
// timestamp, and merges the given metadata into the existing jsonb.
func (r *DocumentRepo) MarkIndexed(ctx context.Context, id, contentHash string, metadata map[string]any) error {
	meta, err := json.Marshal(orEmpty(metadata))
	if err != nil {
		return fmt.Errorf("failed to encode document metadata: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE kb_documents
		 SET is_indexed = true, content_hash = $2, indexed_at = now(), metadata = metadata || $3
		 WHERE id = $1`,
		id, contentHash, meta,
	)
	if err != nil {
		return fmt.Errorf("failed to mark document indexed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkUnindexed flips is_indexed back off. Old chunks are the caller's
// concern; deleting them first keeps stale content out of future answers.
func (r *DocumentRepo) MarkUnindexed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE kb_documents SET is_indexed = false WHERE id = $1", id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark document unindexed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByIDPrefix gets the document whose ID starts with the given prefix.
// A short prefix that matches several documents returns an arbitrary one;
// callers should pass enough characters to be unique.
func (r *DocumentRepo) GetByIDPrefix(ctx context.Context, prefix string) (*Document, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM kb_documents WHERE id::text LIKE $1 || '%' LIMIT 1",
		prefix,
	)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return doc, nil
}

// ListByCollection returns all documents in a collection, newest first.
func (r *DocumentRepo) ListByCollection(ctx context.Context, collectionID string) ([]*Document, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM kb_documents WHERE collection_id = $1 ORDER BY created_at DESC",
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
