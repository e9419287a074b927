package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"docbot/internal/contextutil"
	"docbot/internal/storage"
)

const maxStatsDocs = 10

// collectionSummary is one row of the /collections listing.
type collectionSummary struct {
	ID          string
	Name        string
	Description string
	Documents   int
}

// documentChunks pairs a document with its stored chunk count for the
// /stats top list.
type documentChunks struct {
	Title   string
	Chunks  int
	Indexed bool
}

// collectionStats aggregates what /stats reports for one collection.
type collectionStats struct {
	Collection  *storage.Collection
	TotalDocs   int
	ActiveDocs  int
	IndexedDocs int
	TotalChunks int
	TopDocs     []documentChunks
}

// reindexResult reports what /reindex cleared.
type reindexResult struct {
	DocumentID    string
	Title         string
	ExternalID    string
	ChunksCleared int
}

func (b *Bot) handleCollections(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.requireAdmin(s, i) {
		return
	}
	if !b.deferEphemeral(s, i) {
		return
	}

	ctx := contextutil.WithLogger(context.Background(), b.logger.With("command", "collections"))
	summaries, err := b.collectionSummaries(ctx)
	if err != nil {
		b.logger.Error("failed to list collections", "error", err)
		b.followUpEphemeral(s, i, "Failed to list collections. Check the logs for details.")
		return
	}

	if len(summaries) == 0 {
		b.followUpEphemeral(s, i, "No collections found in the knowledge base.")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Knowledge base collections",
		Description: fmt.Sprintf("%d collection(s)", len(summaries)),
		Color:       0x3498db,
	}
	for _, sum := range summaries {
		description := sum.Description
		if description == "" {
			description = "No description"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  sum.Name,
			Value: fmt.Sprintf("%s\n%d document(s) | `%s`", description, sum.Documents, shortID(sum.ID)),
		})
	}

	b.followUpEmbedEphemeral(s, i, embed)
}

func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.requireAdmin(s, i) {
		return
	}
	if !b.deferEphemeral(s, i) {
		return
	}

	name := b.opts.DefaultCollection
	if opts := i.ApplicationCommandData().Options; len(opts) > 0 {
		name = opts[0].StringValue()
	}

	ctx := contextutil.WithLogger(context.Background(), b.logger.With("command", "stats"))
	stats, err := b.statsForCollection(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.followUpEphemeral(s, i, fmt.Sprintf("Collection `%s` not found.", name))
			return
		}
		b.logger.Error("failed to collect stats", "collection", name, "error", err)
		b.followUpEphemeral(s, i, "Failed to collect statistics. Check the logs for details.")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Statistics: %s", stats.Collection.Name),
		Description: stats.Collection.Description,
		Color:       0x2ecc71,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Documents",
				Value: fmt.Sprintf("Total: %d\nActive: %d\nIndexed: %d",
					stats.TotalDocs, stats.ActiveDocs, stats.IndexedDocs),
				Inline: true,
			},
			{
				Name:   "Chunks",
				Value:  fmt.Sprintf("Total: %d\nPer document: %d", stats.TotalChunks, averageChunks(stats)),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Collection ID: %s", stats.Collection.ID),
		},
	}
	if top := topDocumentsList(stats.TopDocs); top != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Largest documents",
			Value: top,
		})
	}

	b.followUpEmbedEphemeral(s, i, embed)
}

func (b *Bot) handleReindex(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.requireAdmin(s, i) {
		return
	}
	if !b.deferEphemeral(s, i) {
		return
	}

	prefix := i.ApplicationCommandData().Options[0].StringValue()

	ctx := contextutil.WithLogger(context.Background(), b.logger.With("command", "reindex"))
	result, err := b.prepareReindex(ctx, prefix)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.followUpEphemeral(s, i, fmt.Sprintf("No document found with ID prefix `%s`.", prefix))
			return
		}
		b.logger.Error("failed to prepare reindex", "prefix", prefix, "error", err)
		b.followUpEphemeral(s, i, fmt.Sprintf("Failed to prepare reindex: %v", err))
		return
	}

	b.followUpEphemeral(s, i, fmt.Sprintf(
		"Reindex prepared for **%s**: %d old chunk(s) removed.\nRun the ingest command to rebuild it:\n```\ndocbot ingest %q --collection <collection> --force\n```",
		result.Title, result.ChunksCleared, result.ExternalID))
}

// collectionSummaries lists all collections with their document counts.
func (b *Bot) collectionSummaries(ctx context.Context) ([]collectionSummary, error) {
	collections, err := b.collections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	summaries := make([]collectionSummary, 0, len(collections))
	for _, coll := range collections {
		docs, err := b.documents.ListByCollection(ctx, coll.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents for %s: %w", coll.Name, err)
		}
		summaries = append(summaries, collectionSummary{
			ID:          coll.ID,
			Name:        coll.Name,
			Description: coll.Description,
			Documents:   len(docs),
		})
	}

	return summaries, nil
}

// statsForCollection aggregates document and chunk counts for a
// collection. Returns storage.ErrNotFound for an unknown name.
func (b *Bot) statsForCollection(ctx context.Context, name string) (*collectionStats, error) {
	collection, err := b.collections.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	docs, err := b.documents.ListByCollection(ctx, collection.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	stats := &collectionStats{Collection: collection, TotalDocs: len(docs)}
	for _, doc := range docs {
		if doc.IsActive {
			stats.ActiveDocs++
		}
		if doc.IsIndexed {
			stats.IndexedDocs++
		}

		count, err := b.chunks.CountByDocument(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count chunks for %s: %w", doc.ID, err)
		}
		stats.TotalChunks += count
		stats.TopDocs = append(stats.TopDocs, documentChunks{
			Title:   doc.Title,
			Chunks:  count,
			Indexed: doc.IsIndexed,
		})
	}

	sort.SliceStable(stats.TopDocs, func(i, j int) bool {
		return stats.TopDocs[i].Chunks > stats.TopDocs[j].Chunks
	})
	if len(stats.TopDocs) > maxStatsDocs {
		stats.TopDocs = stats.TopDocs[:maxStatsDocs]
	}

	return stats, nil
}

// prepareReindex clears a document's chunks and flips it back to
// unindexed so the next ingest run rebuilds it from the source file.
// Returns storage.ErrNotFound when no document matches the ID prefix.
func (b *Bot) prepareReindex(ctx context.Context, idPrefix string) (*reindexResult, error) {
	doc, err := b.documents.GetByIDPrefix(ctx, idPrefix)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(doc.ExternalID); err != nil {
		return nil, fmt.Errorf("source file missing for %q: %s", doc.Title, doc.ExternalID)
	}

	cleared, err := b.chunks.CountByDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if err := b.chunks.DeleteByDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := b.documents.MarkUnindexed(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to mark document unindexed: %w", err)
	}

	b.logger.Info("reindex prepared",
		"document_id", doc.ID, "title", doc.Title, "chunks_cleared", cleared)

	return &reindexResult{
		DocumentID:    doc.ID,
		Title:         doc.Title,
		ExternalID:    doc.ExternalID,
		ChunksCleared: cleared,
	}, nil
}

// requireAdmin rejects guild interactions from non-administrators.
func (b *Bot) requireAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.GuildID != "" && !isAdmin(i) {
		b.logger.Warn("admin command denied",
			"command", i.ApplicationCommandData().Name,
			"guild_id", i.GuildID, "user_id", interactionUserID(i))
		b.respondEphemeral(s, i, "Only administrators can use this command.")
		return false
	}
	return true
}

func (b *Bot) deferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.logger.Error("failed to defer interaction", "error", err)
		return false
	}
	return true
}

func (b *Bot) followUpEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		b.logger.Error("failed to send follow-up message", "error", err)
	}
}

func (b *Bot) followUpEmbedEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		b.logger.Error("failed to send follow-up embed", "error", err)
	}
}

// topDocumentsList formats the per-document chunk counts for the /stats
// embed. Returns "" when there are no documents.
func topDocumentsList(docs []documentChunks) string {
	if len(docs) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, doc := range docs {
		state := "pending"
		if doc.Indexed {
			state = "indexed"
		}
		sb.WriteString(fmt.Sprintf("`%s` %d chunk(s), %s\n", doc.Title, doc.Chunks, state))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func averageChunks(stats *collectionStats) int {
	if stats.TotalDocs == 0 {
		return 0
	}
	return stats.TotalChunks / stats.TotalDocs
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
