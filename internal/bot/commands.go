package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"docbot/internal/contextutil"
	"docbot/internal/rag"
)

// Discord caps message content at 2000 characters.
const maxMessageLength = 2000

const maxFooterSources = 3

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ask",
			Description: "Ask a question against the knowledge base",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "question",
					Description: "Your question",
					Required:    true,
				},
			},
		},
		{
			Name:        "status",
			Description: "Show the bot's current configuration",
		},
		{
			Name:        "filter",
			Description: "Set the content filter level for this server",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "level",
					Description: "Filter level",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Conservative (formal and professional)", Value: string(rag.FilterConservative)},
						{Name: "Moderate (balanced, default)", Value: string(rag.FilterModerate)},
						{Name: "Liberal (casual and relaxed)", Value: string(rag.FilterLiberal)},
					},
				},
			},
		},
		{
			Name:        "collections",
			Description: "List knowledge base collections (admins only)",
		},
		{
			Name:        "stats",
			Description: "Show document and chunk statistics for a collection (admins only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "collection",
					Description: "Collection name (defaults to the bot's collection)",
					Required:    false,
				},
			},
		},
		{
			Name:        "reindex",
			Description: "Clear a document's index so the next ingest run rebuilds it (admins only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "document_id",
					Description: "Document ID or a unique prefix of it",
					Required:    true,
				},
			},
		},
	}
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	b.logger.Info("command received",
		"command", data.Name, "guild_id", i.GuildID, "user_id", interactionUserID(i))

	switch data.Name {
	case "ask":
		b.handleAsk(s, i)
	case "status":
		b.handleStatus(s, i)
	case "filter":
		b.handleFilter(s, i)
	case "collections":
		b.handleCollections(s, i)
	case "stats":
		b.handleStats(s, i)
	case "reindex":
		b.handleReindex(s, i)
	}
}

// handleAsk defers the response (RAG queries routinely exceed Discord's
// 3-second interaction window) and follows up with the answer.
func (b *Bot) handleAsk(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		b.logger.Error("failed to defer interaction", "error", err)
		return
	}

	question := i.ApplicationCommandData().Options[0].StringValue()

	ctx := contextutil.WithLogger(context.Background(),
		b.logger.With("command", "ask", "guild_id", i.GuildID))
	resp, err := b.engine.Ask(ctx, rag.AskRequest{
		Question:    question,
		Collection:  b.opts.DefaultCollection,
		FilterLevel: b.filterLevelFor(i.GuildID),
	})
	if err != nil {
		b.logger.Error("RAG query failed", "error", err)
		b.followUp(s, i, "Something went wrong while answering your question. Please try again.")
		return
	}

	b.followUp(s, i, truncateMessage(resp.Answer))

	if footer := sourceFooter(resp.Sources); footer != "" {
		b.followUp(s, i, footer)
	}
}

func (b *Bot) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	level := b.filterLevelFor(i.GuildID)

	embed := &discordgo.MessageEmbed{
		Title:       "Bot configuration",
		Description: statusDescription(i.GuildID),
		Color:       0x3498db,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Filter level",
				Value:  fmt.Sprintf("**%s**\n%s", strings.ToUpper(string(level)), filterDescription(level)),
				Inline: false,
			},
			{
				Name:   "LLM model",
				Value:  fmt.Sprintf("`%s`", b.opts.ModelName),
				Inline: true,
			},
			{
				Name:   "Collection",
				Value:  fmt.Sprintf("`%s`", b.opts.DefaultCollection),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Use /filter to change the level (admins only)",
		},
	}

	if b.cache != nil {
		stats := b.cache.Stats()
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Cache",
			Value:  fmt.Sprintf("%d/%d entries | hit rate %.0f%%", stats.Size, stats.MaxSize, stats.HitRate()*100),
			Inline: true,
		})
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
	if err != nil {
		b.logger.Error("failed to respond to status command", "error", err)
	}
}

func (b *Bot) handleFilter(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID != "" && !isAdmin(i) {
		b.logger.Warn("filter change denied", "guild_id", i.GuildID, "user_id", interactionUserID(i))
		b.respondEphemeral(s, i, "Only administrators can change the bot configuration.")
		return
	}

	value := i.ApplicationCommandData().Options[0].StringValue()
	level, err := rag.ParseFilterLevel(value)
	if err != nil {
		b.respondEphemeral(s, i, err.Error())
		return
	}

	b.setFilterLevel(i.GuildID, level)
	b.logger.Info("filter level updated", "guild_id", i.GuildID, "level", level)

	b.respond(s, i, fmt.Sprintf(
		"Filter level updated to **%s**. The bot will now answer with a %s personality in this server.",
		strings.ToUpper(string(level)), level))
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		b.logger.Error("failed to respond to interaction", "error", err)
	}
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error("failed to respond to interaction", "error", err)
	}
}

func (b *Bot) followUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
	if err != nil {
		b.logger.Error("failed to send follow-up message", "error", err)
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

// sourceFooter lists the distinct source documents behind an answer,
// capped at maxFooterSources. Returns "" when there are no sources.
func sourceFooter(sources []rag.Source) string {
	if len(sources) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("**Sources:**\n")
	seen := make(map[string]bool)
	n := 0
	for _, src := range sources {
		if seen[src.Title] {
			continue
		}
		seen[src.Title] = true
		n++
		sb.WriteString(fmt.Sprintf("%d. `%s`\n", n, src.Title))
		if n == maxFooterSources {
			break
		}
	}

	footer := sb.String()
	if len(footer) > maxMessageLength {
		return ""
	}
	return footer
}

// truncateMessage trims content to Discord's message limit, marking
// the cut with an ellipsis.
func truncateMessage(content string) string {
	runes := []rune(content)
	if len(runes) <= maxMessageLength {
		return content
	}
	const marker = " [...]"
	return string(runes[:maxMessageLength-len(marker)]) + marker
}

func filterDescription(level rag.FilterLevel) string {
	switch level {
	case rag.FilterConservative:
		return "Formal, professional and precise"
	case rag.FilterLiberal:
		return "Casual, relaxed and direct"
	default:
		return "Balanced and empathetic (default)"
	}
}

func statusDescription(guildID string) string {
	if guildID == "" {
		return "Current configuration for DMs"
	}
	return "Current configuration for this server"
}
