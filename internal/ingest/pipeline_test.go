package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"docbot/internal/storage"
	"docbot/internal/storage/mocks"
)

// fakeExtractor returns canned text keyed by file path.
type fakeExtractor struct {
	texts   map[string]string
	docType string
	err     error
}

func (f *fakeExtractor) ExtractFile(path string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	docType := f.docType
	if docType == "" {
		docType = "text"
	}
	return f.texts[path], docType, nil
}

// fakeEmbedder returns a fixed-size vector, or fails for texts containing
// the failOn marker.
type fakeEmbedder struct {
	dim    int
	failOn string
	calls  int
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, fmt.Errorf("embedding failed after 3 attempts for text %q", text[:min(20, len(text))])
	}
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32(len(text) % 7)
	}
	return vec, nil
}

type pipelineMocks struct {
	collections *mocks.MockCollectionStore
	documents   *mocks.MockDocumentStore
	chunks      *mocks.MockChunkStore
}

func newTestPipeline(t *testing.T, extractor TextExtractor, embedder Embedder) (*Pipeline, pipelineMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)

	m := pipelineMocks{
		collections: mocks.NewMockCollectionStore(ctrl),
		documents:   mocks.NewMockDocumentStore(ctrl),
		chunks:      mocks.NewMockChunkStore(ctrl),
	}

	p := NewPipeline(m.collections, m.documents, m.chunks, extractor, embedder,
		newFakeTokenizer(), "test-embedding-model",
		slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	return p, m
}

func writeTestDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("failed to resolve path: %v", err)
	}
	return abs
}

var testCollection = &storage.Collection{ID: "coll-1", Name: "exams"}

func TestPipeline_Ingest_NewDocument(t *testing.T) {
	content := wordsText(3000)
	path := writeTestDoc(t, content)

	extractor := &fakeExtractor{texts: map[string]string{path: content}}
	embedder := &fakeEmbedder{dim: 8}
	p, m := newTestPipeline(t, extractor, embedder)

	m.collections.EXPECT().GetOrCreate(gomock.Any(), "exams", gomock.Any()).Return(testCollection, nil)
	m.documents.EXPECT().GetByExternalID(gomock.Any(), "coll-1", path).Return(nil, storage.ErrNotFound)

	var insertedDoc *storage.Document
	m.documents.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, doc *storage.Document) error {
			insertedDoc = doc
			return nil
		})

	var persisted []*storage.Chunk
	m.chunks.EXPECT().InsertBatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rows []*storage.Chunk) error {
			persisted = append(persisted, rows...)
			return nil
		}).AnyTimes()

	var indexedMeta map[string]any
	m.documents.EXPECT().MarkIndexed(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id, hash string, meta map[string]any) error {
			indexedMeta = meta
			return nil
		})

	result, err := p.Ingest(context.Background(), path, Options{CollectionName: "exams"})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if result.Skipped {
		t.Error("Ingest() Skipped = true for new document")
	}
	if result.TotalChunks != 7 {
		t.Errorf("Ingest() TotalChunks = %d, want 7", result.TotalChunks)
	}
	if len(persisted) != 7 {
		t.Errorf("persisted %d chunks, want 7", len(persisted))
	}
	for i, ch := range persisted {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d ChunkIndex = %d", i, ch.ChunkIndex)
		}
		if ch.DocumentID != insertedDoc.ID {
			t.Errorf("chunk %d DocumentID = %s, want %s", i, ch.DocumentID, insertedDoc.ID)
		}
	}

	if insertedDoc.IsIndexed {
		t.Error("document created with is_indexed=true before chunks persisted")
	}
	if insertedDoc.Title != "doc.txt" {
		t.Errorf("document title = %q, want doc.txt", insertedDoc.Title)
	}
	if indexedMeta["total_chunks"] != 7 {
		t.Errorf("indexed metadata total_chunks = %v, want 7", indexedMeta["total_chunks"])
	}
	if indexedMeta["embedding_model"] != "test-embedding-model" {
		t.Errorf("indexed metadata embedding_model = %v", indexedMeta["embedding_model"])
	}
}

func TestPipeline_Ingest_SkipsUnchangedDocument(t *testing.T) {
	content := wordsText(100)
	path := writeTestDoc(t, content)
	hash, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}

	extractor := &fakeExtractor{texts: map[string]string{path: content}}
	embedder := &fakeEmbedder{dim: 8}
	p, m := newTestPipeline(t, extractor, embedder)

	m.collections.EXPECT().GetOrCreate(gomock.Any(), "exams", gomock.Any()).Return(testCollection, nil)
	m.documents.EXPECT().GetByExternalID(gomock.Any(), "coll-1", path).Return(&storage.Document{
		ID:          "doc-1",
		ContentHash: hash,
		IsIndexed:   true,
	}, nil)
	// No delete, no inserts, no MarkIndexed.

	result, err := p.Ingest(context.Background(), path, Options{CollectionName: "exams"})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if !result.Skipped {
		t.Error("Ingest() Skipped = false, want true")
	}
	if result.DocumentID != "doc-1" {
		t.Errorf("Ingest() DocumentID = %s, want doc-1", result.DocumentID)
	}
	if embedder.calls != 0 {
		t.Errorf("embedder called %d times for skipped document, want 0", embedder.calls)
	}
}

func TestPipeline_Ingest_ReindexesOnChangeIncompleteAndForce(t *testing.T) {
	tests := []struct {
		name  string
		doc   func(hash string) *storage.Document
		force bool
	}{
		{
			name: "content changed",
			doc: func(hash string) *storage.Document {
				return &storage.Document{ID: "doc-1", ContentHash: "stale-hash", IsIndexed: true}
			},
		},
		{
			name: "previous run incomplete",
			doc: func(hash string) *storage.Document {
				return &storage.Document{ID: "doc-1", ContentHash: hash, IsIndexed: false}
			},
		},
		{
			name: "forced reindex of unchanged document",
			doc: func(hash string) *storage.Document {
				return &storage.Document{ID: "doc-1", ContentHash: hash, IsIndexed: true}
			},
			force: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := wordsText(100)
			path := writeTestDoc(t, content)
			hash, err := HashFile(path)
			if err != nil {
				t.Fatalf("HashFile() error = %v", err)
			}

			extractor := &fakeExtractor{texts: map[string]string{path: content}}
			embedder := &fakeEmbedder{dim: 8}
			p, m := newTestPipeline(t, extractor, embedder)

			m.collections.EXPECT().GetOrCreate(gomock.Any(), "exams", gomock.Any()).Return(testCollection, nil)
			m.documents.EXPECT().GetByExternalID(gomock.Any(), "coll-1", path).Return(tt.doc(hash), nil)

			// Old chunks removed before new ones land.
			deleteCall := m.chunks.EXPECT().DeleteByDocument(gomock.Any(), "doc-1").Return(nil)
			m.chunks.EXPECT().InsertBatch(gomock.Any(), gomock.Any()).Return(nil).After(deleteCall)
			m.documents.EXPECT().MarkIndexed(gomock.Any(), "doc-1", hash, gomock.Any()).Return(nil)

			result, err := p.Ingest(context.Background(), path, Options{
				CollectionName: "exams",
				Force:          tt.force,
			})
			if err != nil {
				t.Fatalf("Ingest() error = %v", err)
			}
			if result.Skipped {
				t.Error("Ingest() Skipped = true, want reindex")
			}
			if result.TotalChunks != 1 {
				t.Errorf("Ingest() TotalChunks = %d, want 1", result.TotalChunks)
			}
		})
	}
}

func TestPipeline_Ingest_EmbeddingFailureLeavesDocumentUnindexed(t *testing.T) {
	content := wordsText(3000)
	path := writeTestDoc(t, content)

	extractor := &fakeExtractor{texts: map[string]string{path: content}}
	// w2000 appears in a later chunk, so earlier batches persist first.
	embedder := &fakeEmbedder{dim: 8, failOn: "w2000"}
	p, m := newTestPipeline(t, extractor, embedder)

	m.collections.EXPECT().GetOrCreate(gomock.Any(), "exams", gomock.Any()).Return(testCollection, nil)
	m.documents.EXPECT().GetByExternalID(gomock.Any(), "coll-1", path).Return(nil, storage.ErrNotFound)
	m.documents.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	m.chunks.EXPECT().InsertBatch(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	// MarkIndexed must never be called.

	_, err := p.Ingest(context.Background(), path, Options{CollectionName: "exams", BatchSize: 2})
	if err == nil {
		t.Fatal("Ingest() expected error on embedding failure")
	}
	if !strings.Contains(err.Error(), "chunk") {
		t.Errorf("Ingest() error = %q, want chunk context", err.Error())
	}
}

func TestPipeline_Ingest_InsertBatchFailureLeavesDocumentUnindexed(t *testing.T) {
	content := wordsText(100)
	path := writeTestDoc(t, content)

	extractor := &fakeExtractor{texts: map[string]string{path: content}}
	embedder := &fakeEmbedder{dim: 8}
	p, m := newTestPipeline(t, extractor, embedder)

	m.collections.EXPECT().GetOrCreate(gomock.Any(), "exams", gomock.Any()).Return(testCollection, nil)
	m.documents.EXPECT().GetByExternalID(gomock.Any(), "coll-1", path).Return(nil, storage.ErrNotFound)
	m.documents.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	m.chunks.EXPECT().InsertBatch(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err := p.Ingest(context.Background(), path, Options{CollectionName: "exams"})
	if err == nil {
		t.Fatal("Ingest() expected error on insert failure")
	}
}

func TestPipeline_Ingest_InvalidOptionsFailBeforeIO(t *testing.T) {
	// No mock expectations: any store or extractor call fails the test.
	extractor := &fakeExtractor{err: errors.New("extractor must not be called")}
	p, _ := newTestPipeline(t, extractor, &fakeEmbedder{dim: 8})

	tests := []struct {
		name string
		opts Options
	}{
		{name: "overlap equals max", opts: Options{CollectionName: "exams", MaxTokens: 100, OverlapTokens: 100}},
		{name: "overlap exceeds max", opts: Options{CollectionName: "exams", MaxTokens: 100, OverlapTokens: 200}},
		{name: "negative batch size", opts: Options{CollectionName: "exams", BatchSize: -1}},
		{name: "missing collection", opts: Options{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Ingest(context.Background(), "/tmp/whatever.pdf", tt.opts)
			if err == nil {
				t.Error("Ingest() expected configuration error")
			}
		})
	}
}

func TestPipeline_Ingest_EmptyExtractionStopsEarly(t *testing.T) {
	path := writeTestDoc(t, "raw bytes that extract to nothing")

	extractor := &fakeExtractor{err: errors.New("no extractable text in file")}
	p, _ := newTestPipeline(t, extractor, &fakeEmbedder{dim: 8})
	// No store expectations: ingestion must stop before touching the store.

	_, err := p.Ingest(context.Background(), path, Options{CollectionName: "exams"})
	if err == nil {
		t.Fatal("Ingest() expected error for empty extraction")
	}
	if !strings.Contains(err.Error(), "no extractable text") {
		t.Errorf("Ingest() error = %q, want extraction error", err.Error())
	}
}

func TestPipeline_Ingest_MissingFile(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeExtractor{}, &fakeEmbedder{dim: 8})

	_, err := p.Ingest(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"),
		Options{CollectionName: "exams"})
	if err == nil {
		t.Fatal("Ingest() expected error for missing file")
	}
}
