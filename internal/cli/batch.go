package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docbot/internal/ingest"
)

func batchCMD() *cobra.Command {
	var (
		collection       string
		pattern          string
		recursive        bool
		workers          int
		reportPath       string
		metadataFromPath bool
		force            bool
	)

	cmd := &cobra.Command{
		Use:   "batch <directory>",
		Short: "Ingest every matching file in a directory",
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

			opts := ingest.BatchOptions{
				Pattern:          pattern,
				Recursive:        recursive,
				Workers:          workers,
				ReportPath:       reportPath,
				MetadataFromPath: metadataFromPath,
				Ingest: ingest.Options{
					CollectionName: collection,
					Force:          force,
					MaxTokens:      cfg.ChunkMaxTokens,
					OverlapTokens:  cfg.ChunkOverlapTokens,
					BatchSize:      cfg.EmbedBatchSize,
				},
			}
			if opts.Ingest.CollectionName == "" {
				opts.Ingest.CollectionName = cfg.DefaultCollection
			}

			report, err := pipeline.IngestDirectory(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			fmt.Printf("Batch finished: %d succeeded, %d skipped, %d failed (of %d files)\n",
				len(report.Successful), len(report.Skipped), len(report.Failed), report.TotalFiles)

			if report.HasFailures() {
				return fmt.Errorf("%d file(s) failed to ingest", len(report.Failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "target collection (default from DEFAULT_COLLECTION)")
	cmd.Flags().StringVar(&pattern, "pattern", "*.pdf", "glob pattern matched against file names")
	cmd.Flags().BoolVar(&recursive, "recursive", true, "walk subdirectories")
	cmd.Flags().IntVar(&workers, "workers", 1, "parallel ingestion workers")
	cmd.Flags().StringVar(&reportPath, "report", "", "write a JSON report to this path")
	cmd.Flags().BoolVar(&metadataFromPath, "metadata-from-path", false, "record the containing directory in document metadata")
	cmd.Flags().BoolVar(&force, "force", false, "reindex even when content hashes are unchanged")

	return cmd
}
