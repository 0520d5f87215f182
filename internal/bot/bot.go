// Package bot connects the link pipeline to a Discord channel.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrSnakeDoc/linkwrap/internal/convert"
	"github.com/MrSnakeDoc/linkwrap/internal/domain"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	"github.com/MrSnakeDoc/linkwrap/internal/metrics"
)

// SpamChecker decides whether a user is repeating links.
// ratelimit.Limiter satisfies it.
type SpamChecker interface {
	Check(userID string, links []domain.NormalizedLink) bool
}

// AgentLister provides names for the unsupported-link notice.
type AgentLister interface {
	Names() []string
}

// Config holds the bot settings.
type Config struct {
	ChannelID string

	// SpamTimeout is how long a spamming user is timed out.
	SpamTimeout time.Duration
	// TimeoutReason is recorded in the guild audit log.
	TimeoutReason string

	// MaxReconnectAttempts bounds the initial connection attempts.
	MaxReconnectAttempts int
	// ReconnectBackoff caps the wait between attempts.
	ReconnectBackoff time.Duration

	// HandleTimeout bounds the work for one message.
	HandleTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.SpamTimeout <= 0 {
		c.SpamTimeout = 60 * time.Second
	}
	if c.TimeoutReason == "" {
		c.TimeoutReason = "link spam"
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = 5
	}
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = 60 * time.Second
	}
	if c.HandleTimeout <= 0 {
		c.HandleTimeout = 30 * time.Second
	}
}

// Bot handles messages from one channel.
type Bot struct {
	cfg       Config
	session   Session
	converter *convert.Converter
	spam      SpamChecker
	agents    AgentLister
	emojis    func(agent string) string
	logger    logger.Logger
	metrics   *metrics.Metrics

	// now is the clock used for timeouts (tests).
	now func() time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	connected atomic.Bool

	// stopMu orders wg.Add in handlers against wg.Wait in Stop.
	stopMu   sync.Mutex
	stopping bool

	removers  []func()
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Session   Session
	Converter *convert.Converter
	Spam      SpamChecker
	Agents    AgentLister
	// AgentEmoji decorates agent names in the unsupported notice. Optional.
	AgentEmoji func(agent string) string
	Logger     logger.Logger
	Metrics    *metrics.Metrics
}

// New builds a bot. The session is not opened until Start.
func New(cfg Config, deps Deps) (*Bot, error) {
	if cfg.ChannelID == "" {
		return nil, errors.New("channel id is required")
	}
	if deps.Session == nil || deps.Converter == nil || deps.Spam == nil {
		return nil, errors.New("session, converter and spam checker are required")
	}
	cfg.applyDefaults()

	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Bot{
		cfg:       cfg,
		session:   deps.Session,
		converter: deps.Converter,
		spam:      deps.Spam,
		agents:    deps.Agents,
		emojis:    deps.AgentEmoji,
		logger:    log,
		metrics:   deps.Metrics,
		now:       time.Now,
	}, nil
}

// Start registers the event handlers and opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.removers = append(b.removers,
		b.session.AddHandler(b.handleMessageCreate),
		b.session.AddHandler(b.handleReady),
		b.session.AddHandler(b.handleDisconnect),
	)

	if err := b.connectWithRetry(ctx); err != nil {
		b.cancel()
		return fmt.Errorf("failed to connect to discord: %w", err)
	}
	b.connected.Store(true)
	return nil
}

// Stop closes the session and waits for in-flight messages.
func (b *Bot) Stop() error {
	b.stopMu.Lock()
	b.stopping = true
	b.stopMu.Unlock()

	if b.cancel != nil {
		b.cancel()
	}
	for _, remove := range b.removers {
		if remove != nil {
			remove()
		}
	}
	b.wg.Wait()
	b.connected.Store(false)
	return b.session.Close()
}

// Connected reports whether the gateway connection is up.
func (b *Bot) Connected() bool {
	return b.connected.Load()
}

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.connected.Store(true)
	b.logger.Info("🤖 discord connection ready",
		logger.String("user", r.User.Username),
		logger.Int("guilds", len(r.Guilds)))
}

// discordgo reconnects on its own; this only tracks state.
func (b *Bot) handleDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.connected.Store(false)
	b.logger.Warn("disconnected from discord")
}

func (b *Bot) connectWithRetry(ctx context.Context) error {
	var err error
	maxAttempts := b.cfg.MaxReconnectAttempts

	for attempt := 0; attempt < maxAttempts; attempt++ {
		b.logger.Info("connecting to discord",
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", maxAttempts))

		err = b.session.Open()
		if err == nil {
			return nil
		}

		backoff := calculateBackoff(attempt, b.cfg.ReconnectBackoff)
		b.logger.Warn("connection failed, retrying",
			logger.Error(err),
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", backoff))

		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, err)
}

// calculateBackoff doubles from one second, capped at maxBackoff.
func calculateBackoff(attempt int, maxBackoff time.Duration) time.Duration {
	backoff := time.Second << min(attempt, 16)
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}
