package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"docbot/internal/contextutil"
	"docbot/internal/storage"
)

// DocumentsHandler lists the documents registered in a collection.
type DocumentsHandler struct {
	collections       storage.CollectionStore
	documents         storage.DocumentStore
	chunks            storage.ChunkStore
	defaultCollection string
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(collections storage.CollectionStore, documents storage.DocumentStore, chunks storage.ChunkStore, defaultCollection string) *DocumentsHandler {
	return &DocumentsHandler{
		collections:       collections,
		documents:         documents,
		chunks:            chunks,
		defaultCollection: defaultCollection,
	}
}

// DocumentResponse represents a document in the HTTP response.
type DocumentResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	DocType    string `json:"doc_type"`
	ExternalID string `json:"external_id"`
	IsIndexed  bool   `json:"is_indexed"`
	ChunkCount int    `json:"chunk_count"`
	IndexedAt  string `json:"indexed_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// DocumentsResponse represents the document listing response.
type DocumentsResponse struct {
	Collection string             `json:"collection"`
	Documents  []DocumentResponse `json:"documents"`
}

// ServeHTTP lists documents for the collection given in the ?collection
// query parameter, falling back to the configured default.
func (h *DocumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name := r.URL.Query().Get("collection")
	if name == "" {
		name = h.defaultCollection
	}
	if name == "" {
		h.writeError(w, http.StatusBadRequest, "Collection is required")
		return
	}

	collection, err := h.collections.GetByName(ctx, name)
	if err != nil {
		if err == storage.ErrNotFound {
			h.writeError(w, http.StatusNotFound, "Collection not found")
			return
		}
		logger.ErrorContext(ctx, "failed to resolve collection", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to resolve collection")
		return
	}

	docs, err := h.documents.ListByCollection(ctx, collection.ID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list documents", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	resp := DocumentsResponse{
		Collection: collection.Name,
		Documents:  make([]DocumentResponse, 0, len(docs)),
	}
	for _, doc := range docs {
		count, err := h.chunks.CountByDocument(ctx, doc.ID)
		if err != nil {
			logger.ErrorContext(ctx, "failed to count chunks", "document_id", doc.ID, "error", err)
			h.writeError(w, http.StatusInternalServerError, "Failed to count chunks")
			return
		}

		item := DocumentResponse{
			ID:         doc.ID,
			Title:      doc.Title,
			DocType:    doc.DocType,
			ExternalID: doc.ExternalID,
			IsIndexed:  doc.IsIndexed,
			ChunkCount: count,
			CreatedAt:  doc.CreatedAt.UTC().Format(time.RFC3339),
		}
		if doc.IndexedAt != nil {
			item.IndexedAt = doc.IndexedAt.UTC().Format(time.RFC3339)
		}
		resp.Documents = append(resp.Documents, item)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *DocumentsHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
