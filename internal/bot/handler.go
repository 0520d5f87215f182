package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/linkwrap/internal/domain"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

func (b *Bot) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil {
		return
	}
	base := b.ctx
	if base == nil {
		base = context.Background()
	}
	if !b.track(base) {
		return
	}
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(base, b.cfg.HandleTimeout)
	defer cancel()
	b.handle(ctx, m.Message)
}

// track registers an in-flight message unless Stop has begun.
func (b *Bot) track(ctx context.Context) bool {
	b.stopMu.Lock()
	defer b.stopMu.Unlock()
	if b.stopping || ctx.Err() != nil {
		return false
	}
	b.wg.Add(1)
	return true
}

// handle processes one message. Errors and panics are logged and answered
// with a generic reply.
func (b *Bot) handle(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.ChannelID != b.cfg.ChannelID {
		return
	}

	log := b.logger.With(
		logger.String("correlation_id", uuid.NewString()),
		logger.String("user_id", m.Author.ID),
		logger.String("message_id", m.ID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("message handler panicked", logger.Error(fmt.Errorf("%v", r)))
			b.metrics.ObserveMessage("error")
			b.reply(log, m, errorReply(m))
		}
	}()

	if err := b.process(ctx, log, m); err != nil {
		log.Error("failed to process message", logger.Error(err))
		b.metrics.ObserveMessage("error")
		b.reply(log, m, errorReply(m))
	}
}

func (b *Bot) process(ctx context.Context, log logger.Logger, m *discordgo.Message) error {
	conv := b.converter.Resolve(ctx, m.Content)
	if len(conv.URLs) == 0 {
		b.metrics.ObserveMessage("no_links")
		return nil
	}

	log.Debug("resolved message links",
		logger.Int("urls", len(conv.URLs)),
		logger.Int("valid", len(conv.Result.Valid)),
		logger.Int("invalid", len(conv.Result.Invalid)))

	if !conv.Result.Accepted() {
		b.metrics.ObserveMessage("unsupported")
		log.Info("unsupported links in message", logger.Strings("invalid", conv.Result.Invalid))
		return b.send(m, unsupportedReply(m, b.marketplaceNames(), b.agentNames()))
	}

	if b.spam.Check(m.Author.ID, conv.Result.Valid) {
		b.metrics.ObserveMessage("spam")
		b.punish(ctx, log, m)
		return nil
	}

	conv = b.converter.Build(conv)
	if len(conv.Descriptions) == 0 {
		return fmt.Errorf("no link could be rendered out of %d", len(conv.Result.Valid))
	}

	b.metrics.ObserveMessage("converted")
	log.Info("converted links", logger.Int("count", len(conv.Descriptions)))
	reply, shown := conversionReply(m, conv.Descriptions, conv.Buttons)
	if dropped := len(conv.Descriptions) - shown; dropped > 0 {
		log.Warn("reply limits reached, links left out",
			logger.Int("shown", shown),
			logger.Int("dropped", dropped))
	}
	return b.send(m, reply)
}

func (b *Bot) send(m *discordgo.Message, msg *discordgo.MessageSend) error {
	if _, err := b.session.ChannelMessageSendComplex(m.ChannelID, msg); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// reply sends msg and only logs a failure.
func (b *Bot) reply(log logger.Logger, m *discordgo.Message, msg *discordgo.MessageSend) {
	if err := b.send(m, msg); err != nil {
		log.Error("failed to send reply", logger.Error(err))
	}
}

func (b *Bot) marketplaceNames() []string {
	names := make([]string, len(domain.Marketplaces))
	for i, mk := range domain.Marketplaces {
		names[i] = strings.ToUpper(mk.Name()[:1]) + mk.Name()[1:]
	}
	return names
}

func (b *Bot) agentNames() []string {
	if b.agents == nil {
		return nil
	}
	names := b.agents.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n
		if b.emojis != nil {
			if e := b.emojis(n); e != "" {
				out[i] = e + " " + n
			}
		}
	}
	return out
}
