// Package bot wires the RAG engine to Discord slash commands.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"docbot/internal/cache"
	"docbot/internal/rag"
	"docbot/internal/storage"
)

// Options configures the Discord bot.
type Options struct {
	Token string
	// GuildID scopes command registration to one guild for instant
	// availability. Empty registers global commands.
	GuildID            string
	DefaultCollection  string
	DefaultFilterLevel rag.FilterLevel
	ModelName          string
}

// Bot runs the Discord gateway connection and slash command handlers.
type Bot struct {
	session     *discordgo.Session
	engine      rag.Engine
	cache       *cache.QueryCache
	collections storage.CollectionStore
	documents   storage.DocumentStore
	chunks      storage.ChunkStore
	opts        Options
	logger      *slog.Logger

	mu           sync.RWMutex
	guildFilters map[string]rag.FilterLevel

	registered []*discordgo.ApplicationCommand
}

// New creates a Bot. The stores back the admin commands; the cache is
// optional and only used for /status statistics.
func New(
	engine rag.Engine,
	queryCache *cache.QueryCache,
	collections storage.CollectionStore,
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	opts Options,
) (*Bot, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	if opts.DefaultFilterLevel == "" {
		opts.DefaultFilterLevel = rag.FilterModerate
	}

	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	return &Bot{
		session:      session,
		engine:       engine,
		cache:        queryCache,
		collections:  collections,
		documents:    documents,
		chunks:       chunks,
		opts:         opts,
		logger:       slog.Default(),
		guildFilters: make(map[string]rag.FilterLevel),
	}, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.Info("discord session ready", "username", r.User.Username)
	})
	b.session.AddHandler(b.handleInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	registered, err := b.session.ApplicationCommandBulkOverwrite(
		b.session.State.User.ID, b.opts.GuildID, commandDefinitions())
	if err != nil {
		_ = b.session.Close()
		return fmt.Errorf("failed to register slash commands: %w", err)
	}
	b.registered = registered

	b.logger.Info("slash commands registered",
		"count", len(registered), "guild_id", b.opts.GuildID)
	return nil
}

// Stop removes registered commands and closes the gateway connection.
func (b *Bot) Stop() error {
	for _, cmd := range b.registered {
		if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.opts.GuildID, cmd.ID); err != nil {
			b.logger.Warn("failed to delete slash command", "command", cmd.Name, "error", err)
		}
	}
	return b.session.Close()
}

// filterLevelFor returns the filter level configured for a guild,
// falling back to the default. DMs (empty guild ID) use the default.
func (b *Bot) filterLevelFor(guildID string) rag.FilterLevel {
	if guildID == "" {
		return b.opts.DefaultFilterLevel
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if level, ok := b.guildFilters[guildID]; ok {
		return level
	}
	return b.opts.DefaultFilterLevel
}

func (b *Bot) setFilterLevel(guildID string, level rag.FilterLevel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.guildFilters[guildID] = level
}
