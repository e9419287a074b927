package cli

import (
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"

	"docbot/internal/cache"
	"docbot/internal/http"
	"docbot/internal/llm"
	"docbot/internal/rag"
	"docbot/internal/storage"
)

func serveCMD() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			collections := storage.NewCollectionRepo(db)
			documents := storage.NewDocumentRepo(db)
			chunks := storage.NewChunkRepo(db)

			embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
			llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
			queryCache := cache.New(cfg.CacheSize, time.Duration(cfg.CacheTTLSeconds)*time.Second)

			engine := rag.NewEngine(embedder, collections, chunks, llmClient, queryCache)
			slog.Info("RAG engine initialized", "model", cfg.LLMModelName)

			router := http.NewRouter(&http.Deps{
				DB:                 db,
				RAGEngine:          engine,
				Collections:        collections,
				Documents:          documents,
				Chunks:             chunks,
				DefaultCollection:  cfg.DefaultCollection,
				DefaultFilterLevel: rag.FilterLevel(cfg.FilterLevel),
			})

			if addr == "" {
				addr = ":" + cfg.APIPort
			}
			slog.Info("Starting API server", "addr", addr)
			return nethttp.ListenAndServe(addr, router)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$API_PORT)")

	return cmd
}
