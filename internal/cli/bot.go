package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docbot/internal/bot"
	"docbot/internal/cache"
	"docbot/internal/llm"
	"docbot/internal/rag"
	"docbot/internal/storage"
)

func botCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Discord bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DiscordToken == "" {
				return fmt.Errorf("DISCORD_TOKEN is required to run the bot")
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

			b, err := bot.New(engine, queryCache, collections, documents, chunks, bot.Options{
				Token:              cfg.DiscordToken,
				GuildID:            cfg.DiscordGuildID,
				DefaultCollection:  cfg.DefaultCollection,
				DefaultFilterLevel: rag.FilterLevel(cfg.FilterLevel),
				ModelName:          cfg.LLMModelName,
			})
			if err != nil {
				return err
			}

			if err := b.Start(cmd.Context()); err != nil {
				return err
			}
			slog.Info("Bot running, press Ctrl+C to exit")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down bot")
			return b.Stop()
		},
	}
}
