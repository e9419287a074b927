package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var documentColumnNames = []string{
	"id", "collection_id", "external_id", "title", "doc_type", "content_hash",
	"is_indexed", "is_active", "metadata", "indexed_at", "created_at",
}

func TestDocumentRepo_GetByExternalID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	indexedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(documentColumnNames).
		AddRow("doc-1", "coll-1", "/data/notes.pdf", "notes.pdf", "pdf", "abc123",
			true, true, []byte(`{"total_chunks":7}`), indexedAt, indexedAt.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM kb_documents WHERE collection_id").
		WithArgs("coll-1", "/data/notes.pdf").
		WillReturnRows(rows)

	repo := NewDocumentRepo(db)
	got, err := repo.GetByExternalID(context.Background(), "coll-1", "/data/notes.pdf")
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if got.ID != "doc-1" || !got.IsIndexed || got.ContentHash != "abc123" {
		t.Errorf("GetByExternalID() = %+v", got)
	}
	if got.IndexedAt == nil || !got.IndexedAt.Equal(indexedAt) {
		t.Errorf("IndexedAt = %v, want %v", got.IndexedAt, indexedAt)
	}
	if got.Metadata["total_chunks"] != float64(7) {
		t.Errorf("Metadata = %v", got.Metadata)
	}
}

func TestDocumentRepo_GetByExternalID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM kb_documents WHERE collection_id").
		WithArgs("coll-1", "/nope").
		WillReturnRows(sqlmock.NewRows(documentColumnNames))

	repo := NewDocumentRepo(db)
	_, err = repo.GetByExternalID(context.Background(), "coll-1", "/nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByExternalID() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO kb_documents").
		WithArgs("doc-1", "coll-1", "/data/notes.pdf", "notes.pdf", "pdf", "abc123",
			false, true, []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDocumentRepo(db)
	err = repo.Insert(context.Background(), &Document{
		ID:           "doc-1",
		CollectionID: "coll-1",
		ExternalID:   "/data/notes.pdf",
		Title:        "notes.pdf",
		DocType:      "pdf",
		ContentHash:  "abc123",
		IsIndexed:    false,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentRepo_MarkIndexed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE kb_documents").
		WithArgs("doc-1", "newhash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDocumentRepo(db)
	err = repo.MarkIndexed(context.Background(), "doc-1", "newhash",
		map[string]any{"total_chunks": 7, "embedding_model": "text-embedding-3-small"})
	if err != nil {
		t.Fatalf("MarkIndexed() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentRepo_MarkIndexed_MissingDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE kb_documents").
		WithArgs("ghost", "hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewDocumentRepo(db)
	err = repo.MarkIndexed(context.Background(), "ghost", "hash", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkIndexed() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_ListByCollection(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(documentColumnNames).
		AddRow("doc-2", "coll-1", "/b.md", "b.md", "markdown", "h2", false, true, []byte(`{}`), nil, now).
		AddRow("doc-1", "coll-1", "/a.pdf", "a.pdf", "pdf", "h1", true, true, []byte(`{}`), now, now.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM kb_documents WHERE collection_id (.+) ORDER BY created_at DESC").
		WithArgs("coll-1").
		WillReturnRows(rows)

	repo := NewDocumentRepo(db)
	docs, err := repo.ListByCollection(context.Background(), "coll-1")
	if err != nil {
		t.Fatalf("ListByCollection() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}
	if docs[0].ID != "doc-2" || docs[0].IndexedAt != nil {
		t.Errorf("docs[0] = %+v", docs[0])
	}
	if docs[1].ID != "doc-1" || docs[1].IndexedAt == nil {
		t.Errorf("docs[1] = %+v", docs[1])
	}
}

func TestDocumentRepo_MarkUnindexed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE kb_documents SET is_indexed = false").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDocumentRepo(db)
	if err := repo.MarkUnindexed(context.Background(), "doc-1"); err != nil {
		t.Fatalf("MarkUnindexed() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentRepo_MarkUnindexed_MissingDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE kb_documents SET is_indexed = false").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewDocumentRepo(db)
	if err := repo.MarkUnindexed(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkUnindexed() error = %v, want ErrNotFound", err)
	}
}

func TestDocumentRepo_GetByIDPrefix(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(documentColumnNames).
		AddRow("doc-1a2b3c", "coll-1", "/data/notes.pdf", "notes.pdf", "pdf", "h1",
			true, true, []byte(`{}`), now, now.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM kb_documents WHERE id(.+)LIKE").
		WithArgs("doc-1a2b").
		WillReturnRows(rows)

	repo := NewDocumentRepo(db)
	got, err := repo.GetByIDPrefix(context.Background(), "doc-1a2b")
	if err != nil {
		t.Fatalf("GetByIDPrefix() error = %v", err)
	}
	if got.ID != "doc-1a2b3c" || got.ExternalID != "/data/notes.pdf" {
		t.Errorf("GetByIDPrefix() = %+v", got)
	}
}

func TestDocumentRepo_GetByIDPrefix_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM kb_documents WHERE id(.+)LIKE").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(documentColumnNames))

	repo := NewDocumentRepo(db)
	if _, err := repo.GetByIDPrefix(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByIDPrefix() error = %v, want ErrNotFound", err)
	}
}
