package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// New opens a Postgres database connection using the pgx stdlib driver.
// It sets connection pool settings and verifies the connection.
func New(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// vectorSize is the embedding dimensionality; changing it requires
// recreating kb_chunks. Migrate is idempotent and can be run multiple
// times safely.
func Migrate(db *sql.DB, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("vector size must be greater than 0, got %d", vectorSize)
	}

	schema := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		`CREATE TABLE IF NOT EXISTS kb_collections (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS kb_documents (
			id UUID PRIMARY KEY,
			collection_id UUID NOT NULL REFERENCES kb_collections(id),
			external_id TEXT NOT NULL,
			title TEXT NOT NULL,
			doc_type TEXT NOT NULL DEFAULT 'pdf',
			content_hash TEXT NOT NULL,
			is_indexed BOOLEAN NOT NULL DEFAULT false,
			is_active BOOLEAN NOT NULL DEFAULT true,
			metadata JSONB NOT NULL DEFAULT '{}',
			indexed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (collection_id, external_id)
		);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS kb_chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES kb_documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			token_count INTEGER NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`, vectorSize),
		`CREATE INDEX IF NOT EXISTS idx_kb_chunks_document_id ON kb_chunks(document_id);`,
		`CREATE INDEX IF NOT EXISTS idx_kb_documents_collection_id ON kb_documents(collection_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
