package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docbot/internal/config"
	"docbot/internal/extract"
	"docbot/internal/ingest"
	"docbot/internal/llm"
	"docbot/internal/storage"
)

func ingestCMD() *cobra.Command {
	var (
		collection   string
		description  string
		title        string
		docType      string
		metadataJSON string
		force        bool
		maxTokens    int
		overlap      int
		batchSize    int
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a single document into the knowledge base",
		Args:  cobra.ExactArgs(1),
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

			pipeline, err := buildPipeline(cfg, db)
			if err != nil {
				return err
			}

			opts := ingest.Options{
				CollectionName:        collection,
				CollectionDescription: description,
				Title:                 title,
				DocType:               docType,
				Force:                 force,
				MaxTokens:             maxTokens,
				OverlapTokens:         overlap,
				BatchSize:             batchSize,
			}
			if metadataJSON != "" {
				if err := json.Unmarshal([]byte(metadataJSON), &opts.Metadata); err != nil {
					return fmt.Errorf("invalid --metadata JSON: %w", err)
				}
			}
			if opts.CollectionName == "" {
				opts.CollectionName = cfg.DefaultCollection
			}
			if opts.MaxTokens == 0 {
				opts.MaxTokens = cfg.ChunkMaxTokens
			}
			if opts.OverlapTokens == 0 {
				opts.OverlapTokens = cfg.ChunkOverlapTokens
			}
			if opts.BatchSize == 0 {
				opts.BatchSize = cfg.EmbedBatchSize
			}

			result, err := pipeline.Ingest(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			if result.Skipped {
				fmt.Printf("Skipped (already indexed): %s\n", result.DocumentID)
			} else {
				fmt.Printf("Indexed %s (%d chunks)\n", result.DocumentID, result.TotalChunks)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "target collection (default from DEFAULT_COLLECTION)")
	cmd.Flags().StringVar(&description, "description", "", "description used when the collection is created")
	cmd.Flags().StringVar(&title, "title", "", "document title (default: file name)")
	cmd.Flags().StringVar(&docType, "doc-type", "", "document type (default: inferred from extension)")
	cmd.Flags().StringVar(&metadataJSON, "metadata", "", "extra document metadata as a JSON object")
	cmd.Flags().BoolVar(&force, "force", false, "reindex even when the content hash is unchanged")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "max tokens per chunk (default from CHUNK_MAX_TOKENS)")
	cmd.Flags().IntVar(&overlap, "overlap", 0, "overlapping tokens between chunks, -1 for none (default from CHUNK_OVERLAP_TOKENS)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "chunks per insert batch (default from EMBED_BATCH_SIZE)")

	return cmd
}

// buildPipeline wires the extractor registry, tokenizer, embedding
// client and store repositories into an ingestion pipeline.
func buildPipeline(cfg *config.Config, db *sql.DB) (*ingest.Pipeline, error) {
	tokenizer, err := ingest.NewTokenizerForModel(cfg.EmbeddingModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)

	return ingest.NewPipeline(
		storage.NewCollectionRepo(db),
		storage.NewDocumentRepo(db),
		storage.NewChunkRepo(db),
		extract.NewRegistry(),
		embedder,
		tokenizer,
		cfg.EmbeddingModelName,
		nil,
	), nil
}
