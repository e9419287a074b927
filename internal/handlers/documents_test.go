package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"docbot/internal/storage"
	"docbot/internal/storage/mocks"
)

func TestDocumentsHandler_ListsDocuments(t *testing.T) {
	ctrl := gomock.NewController(t)
	collections := mocks.NewMockCollectionStore(ctrl)
	documents := mocks.NewMockDocumentStore(ctrl)
	chunks := mocks.NewMockChunkStore(ctrl)

	indexedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	collections.EXPECT().GetByName(gomock.Any(), "exams").
		Return(&storage.Collection{ID: "coll-1", Name: "exams"}, nil)
	documents.EXPECT().ListByCollection(gomock.Any(), "coll-1").
		Return([]*storage.Document{
			{
				ID:         "doc-1",
				Title:      "notes.pdf",
				DocType:    "pdf",
				ExternalID: "/data/notes.pdf",
				IsIndexed:  true,
				IndexedAt:  &indexedAt,
				CreatedAt:  indexedAt.Add(-time.Hour),
			},
			{
				ID:         "doc-2",
				Title:      "draft.md",
				DocType:    "markdown",
				ExternalID: "/data/draft.md",
				CreatedAt:  indexedAt,
			},
		}, nil)
	chunks.EXPECT().CountByDocument(gomock.Any(), "doc-1").Return(7, nil)
	chunks.EXPECT().CountByDocument(gomock.Any(), "doc-2").Return(0, nil)

	handler := NewDocumentsHandler(collections, documents, chunks, "exams")
	req := httptest.NewRequest(http.MethodGet, "/api/documents?collection=exams", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp DocumentsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Collection != "exams" {
		t.Errorf("Collection = %q", resp.Collection)
	}
	if len(resp.Documents) != 2 {
		t.Fatalf("len(Documents) = %d, want 2", len(resp.Documents))
	}
	if !resp.Documents[0].IsIndexed || resp.Documents[0].IndexedAt == "" {
		t.Errorf("Documents[0] = %+v, want indexed with timestamp", resp.Documents[0])
	}
	if resp.Documents[0].ChunkCount != 7 {
		t.Errorf("Documents[0].ChunkCount = %d, want 7", resp.Documents[0].ChunkCount)
	}
	if resp.Documents[1].IsIndexed || resp.Documents[1].IndexedAt != "" {
		t.Errorf("Documents[1] = %+v, want not indexed without timestamp", resp.Documents[1])
	}
}

func TestDocumentsHandler_DefaultCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	collections := mocks.NewMockCollectionStore(ctrl)
	documents := mocks.NewMockDocumentStore(ctrl)

	collections.EXPECT().GetByName(gomock.Any(), "exams").
		Return(&storage.Collection{ID: "coll-1", Name: "exams"}, nil)
	documents.EXPECT().ListByCollection(gomock.Any(), "coll-1").Return(nil, nil)

	handler := NewDocumentsHandler(collections, documents, mocks.NewMockChunkStore(ctrl), "exams")
	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestDocumentsHandler_UnknownCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	collections := mocks.NewMockCollectionStore(ctrl)
	documents := mocks.NewMockDocumentStore(ctrl)

	collections.EXPECT().GetByName(gomock.Any(), "nope").Return(nil, storage.ErrNotFound)

	handler := NewDocumentsHandler(collections, documents, mocks.NewMockChunkStore(ctrl), "exams")
	req := httptest.NewRequest(http.MethodGet, "/api/documents?collection=nope", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDocumentsHandler_MethodNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := NewDocumentsHandler(mocks.NewMockCollectionStore(ctrl), mocks.NewMockDocumentStore(ctrl), mocks.NewMockChunkStore(ctrl), "exams")

	req := httptest.NewRequest(http.MethodPost, "/api/documents", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	handler := NewHealthHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
