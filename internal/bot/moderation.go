package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

// punish times the author out and, only if that worked, posts a warning.
// The guild owner cannot be timed out and is left alone.
func (b *Bot) punish(_ context.Context, log logger.Logger, m *discordgo.Message) {
	if m.GuildID == "" {
		log.Debug("spam outside a guild, not moderating")
		return
	}

	guild, err := b.session.Guild(m.GuildID)
	if err != nil {
		log.Warn("failed to look up guild", logger.Error(err))
		return
	}
	if guild.OwnerID == m.Author.ID {
		log.Info("spam by guild owner, skipping timeout")
		return
	}

	until := b.now().Add(b.cfg.SpamTimeout)
	err = b.session.GuildMemberTimeout(m.GuildID, m.Author.ID, &until,
		discordgo.WithAuditLogReason(b.cfg.TimeoutReason))
	if err != nil {
		// missing permission or a member ranked above the bot
		log.Warn("timeout refused, no warning sent", logger.Error(err))
		return
	}

	log.Info("user timed out for link spam", logger.Duration("timeout", b.cfg.SpamTimeout))
	b.reply(log, m, warningReply(m, b.cfg.SpamTimeout.String()))
}
