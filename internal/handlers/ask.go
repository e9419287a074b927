package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"docbot/internal/contextutil"
	"docbot/internal/rag"
)

// AskHandler handles HTTP requests for RAG queries.
type AskHandler struct {
	ragEngine          rag.Engine
	defaultCollection  string
	defaultFilterLevel rag.FilterLevel
}

// NewAskHandler creates a new AskHandler. The defaults apply when the
// request omits the collection or filter level.
func NewAskHandler(ragEngine rag.Engine, defaultCollection string, defaultFilterLevel rag.FilterLevel) *AskHandler {
	return &AskHandler{
		ragEngine:          ragEngine,
		defaultCollection:  defaultCollection,
		defaultFilterLevel: defaultFilterLevel,
	}
}

// AskRequest represents the HTTP request payload for RAG queries.
// This mirrors rag.AskRequest but is defined here for HTTP layer separation.
type AskRequest struct {
	Question    string `json:"question"`
	Collection  string `json:"collection,omitempty"`
	K           int    `json:"k,omitempty"`
	FilterLevel string `json:"filter_level,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for RAG queries.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		h.writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	if req.K < 0 {
		req.K = 0
	}

	collection := req.Collection
	if collection == "" {
		collection = h.defaultCollection
	}

	level := h.defaultFilterLevel
	if req.FilterLevel != "" {
		parsed, err := rag.ParseFilterLevel(req.FilterLevel)
		if err != nil {
			logger.WarnContext(ctx, "invalid filter level", "filter_level", req.FilterLevel)
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		level = parsed
	}

	ragResp, err := h.ragEngine.Ask(ctx, rag.AskRequest{
		Question:    req.Question,
		Collection:  collection,
		K:           req.K,
		FilterLevel: level,
	})
	if err != nil {
		h.handleRAGError(w, ctx, err, "Failed to process RAG query")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ragResp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleRAGError maps RAG engine errors to appropriate HTTP status codes.
func (h *AskHandler) handleRAGError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "RAG engine error", "error", err)

	switch {
	case errors.Is(err, rag.ErrCollectionNotFound):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rag.ErrStorage):
		h.writeError(w, http.StatusServiceUnavailable, "Knowledge base unavailable")
	case errors.Is(err, rag.ErrEmbedding), errors.Is(err, rag.ErrLLM):
		h.writeError(w, http.StatusBadGateway, "External service error")
	default:
		h.writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}

// writeError writes an error response.
func (h *AskHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
