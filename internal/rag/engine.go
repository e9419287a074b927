package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docbot/internal/cache"
	"docbot/internal/contextutil"
	"docbot/internal/llm"
	"docbot/internal/storage"
)

const (
	defaultK = 5
	maxK     = 20
)

// Sentinel errors wrapped into every Ask failure so transports can map
// them to status codes with errors.Is instead of parsing error text.
var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrEmbedding          = errors.New("failed to embed question")
	ErrStorage            = errors.New("knowledge base query failed")
	ErrLLM                = errors.New("failed to get LLM response")
)

// Engine answers questions with retrieval-augmented generation.
type Engine interface {
	// Ask retrieves relevant chunks and generates an answer.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// Embedder generates an embedding vector for a single text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// ChatClient generates a completion from chat messages.
type ChatClient interface {
	Chat(ctx context.Context, messages []llm.ChatMessage, params llm.ChatParams) (string, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	embedder    Embedder
	collections storage.CollectionStore
	chunks      storage.ChunkStore
	llmClient   ChatClient
	cache       *cache.QueryCache
}

// NewEngine creates a RAG engine. The cache is optional; pass nil to
// answer every question fresh.
func NewEngine(
	embedder Embedder,
	collections storage.CollectionStore,
	chunks storage.ChunkStore,
	llmClient ChatClient,
	queryCache *cache.QueryCache,
) Engine {
	return &ragEngine{
		embedder:    embedder,
		collections: collections,
		chunks:      chunks,
		llmClient:   llmClient,
		cache:       queryCache,
	}
}

// Ask answers a question against a collection. Only chunks of indexed,
// active documents are retrieved.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return AskResponse{}, fmt.Errorf("question is required")
	}
	if req.Collection == "" {
		return AskResponse{}, fmt.Errorf("collection is required")
	}

	level := req.FilterLevel
	if level == "" {
		level = FilterModerate
	}

	k := req.K
	if k == 0 {
		k = defaultK
	}
	if k > maxK {
		k = maxK
	}

	logger.InfoContext(ctx, "RAG query started",
		"collection", req.Collection, "k", k, "filter_level", level)

	cacheKey := cache.Key(question, req.Collection, string(level))
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if resp, ok := cached.(AskResponse); ok {
				logger.InfoContext(ctx, "answer served from cache")
				resp.Cached = true
				return resp, nil
			}
		}
	}

	queryVector, err := e.embedder.EmbedText(ctx, question)
	if err != nil {
		return AskResponse{}, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	collection, err := e.collections.GetByName(ctx, req.Collection)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return AskResponse{}, fmt.Errorf("%w: %q", ErrCollectionNotFound, req.Collection)
		}
		return AskResponse{}, fmt.Errorf("%w: resolve collection: %w", ErrStorage, err)
	}

	results, err := e.chunks.Search(ctx, collection.ID, queryVector, k)
	if err != nil {
		return AskResponse{}, fmt.Errorf("%w: search chunks: %w", ErrStorage, err)
	}

	logger.InfoContext(ctx, "vector search completed", "results", len(results))

	if len(results) == 0 {
		return AskResponse{
			Answer:  "I couldn't find any relevant information in the knowledge base to answer this question.",
			Sources: []Source{},
		}, nil
	}

	// Format retrieved chunks with their document titles so the model
	// can attribute statements.
	var contextBuilder strings.Builder
	contextBuilder.WriteString("--- Context from knowledge base ---\n\n")
	for _, res := range results {
		contextBuilder.WriteString(fmt.Sprintf("[Document: %s]\n%s\n\n", res.DocumentTitle, res.Content))
	}
	contextBuilder.WriteString("--- End context ---")

	messages := []llm.ChatMessage{
		{Role: "system", Content: systemPrompt(level, contextBuilder.String())},
		{Role: "user", Content: question},
	}

	answer, err := e.llmClient.Chat(ctx, messages, llm.ChatParams{Temperature: 0.7})
	if err != nil {
		return AskResponse{}, fmt.Errorf("%w: %w", ErrLLM, err)
	}

	sources := make([]Source, 0, len(results))
	for _, res := range results {
		sources = append(sources, Source{
			DocumentID: res.DocumentID,
			Title:      res.DocumentTitle,
			ChunkIndex: res.ChunkIndex,
			Distance:   res.Distance,
		})
	}

	resp := AskResponse{Answer: answer, Sources: sources}
	if e.cache != nil {
		e.cache.Set(cacheKey, resp)
	}

	logger.InfoContext(ctx, "RAG query completed",
		"chunks_used", len(results), "answer_length", len(answer))

	return resp, nil
}
