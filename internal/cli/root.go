// Package cli defines the docbot command tree.
package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"docbot/internal/config"
	"docbot/internal/storage"
)

// Execute runs the root command.
func Execute() {
	root := &cobra.Command{
		Use:   "docbot",
		Short: "Discord RAG chatbot over a document knowledge base",
		// Silence cobra's own error printing; RunE errors are logged once
		// in Execute.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(ingestCMD(), batchCMD(), serveCMD(), botCMD())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig loads the environment configuration and installs the
// configured slog handler as the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	return cfg, nil
}

// openDatabase connects to Postgres and applies the schema.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db, cfg.EmbeddingVectorSize); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "vector_size", cfg.EmbeddingVectorSize)
	return db, nil
}
