package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docbot/internal/handlers"
	"docbot/internal/rag"
	"docbot/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	DB                 *sql.DB
	RAGEngine          rag.Engine
	Collections        storage.CollectionStore
	Documents          storage.DocumentStore
	Chunks             storage.ChunkStore
	DefaultCollection  string
	DefaultFilterLevel rag.FilterLevel
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.RAGEngine, deps.DefaultCollection, deps.DefaultFilterLevel)
	healthHandler := handlers.NewHealthHandler(deps.DB)
	documentsHandler := handlers.NewDocumentsHandler(deps.Collections, deps.Documents, deps.Chunks, deps.DefaultCollection)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodGet, "/documents", documentsHandler)
	})

	return r
}
