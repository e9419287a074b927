package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_collection_store.go -package=mocks docbot/internal/storage CollectionStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// CollectionStore defines the interface for collection storage operations.
type CollectionStore interface {
	// GetOrCreate returns the collection with the given name, creating it
	// if it does not exist. Idempotent.
	GetOrCreate(ctx context.Context, name, description string) (*Collection, error)
	// GetByName gets a collection by name. Returns ErrNotFound if not found.
	GetByName(ctx context.Context, name string) (*Collection, error)
	// List returns all collections, newest first.
	List(ctx context.Context) ([]*Collection, error)
}

// CollectionRepo provides methods for collection operations.
// It implements the CollectionStore interface.
type CollectionRepo struct {
	db *sql.DB
}

// NewCollectionRepo creates a new CollectionRepo.
func NewCollectionRepo(db *sql.DB) *CollectionRepo {
	return &CollectionRepo{db: db}
}

// GetByName gets a collection by name. Returns ErrNotFound if not found.
func (r *CollectionRepo) GetByName(ctx context.Context, name string) (*Collection, error) {
	var c Collection
	var metadata []byte

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, COALESCE(description, ''), metadata, created_at FROM kb_collections WHERE name = $1",
		name,
	).Scan(&c.ID, &c.Name, &c.Description, &metadata, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode collection metadata: %w", err)
	}

	return &c, nil
}

// List returns all collections, newest first.
func (r *CollectionRepo) List(ctx context.Context) ([]*Collection, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, COALESCE(description, ''), metadata, created_at FROM kb_collections ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var collections []*Collection
	for rows.Next() {
		var c Collection
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &metadata, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode collection metadata: %w", err)
		}
		collections = append(collections, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return collections, nil
}

// GetOrCreate returns the collection with the given name, creating it if
// it does not exist. ON CONFLICT DO NOTHING keeps concurrent creators safe;
// the follow-up read returns whichever row won.
func (r *CollectionRepo) GetOrCreate(ctx context.Context, name, description string) (*Collection, error) {
	existing, err := r.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO kb_collections (id, name, description, metadata)
		 VALUES ($1, $2, $3, '{}')
		 ON CONFLICT (name) DO NOTHING`,
		uuid.New().String(), name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return r.GetByName(ctx, name)
}
