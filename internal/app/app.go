package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/linkwrap/internal/bot"
	"github.com/MrSnakeDoc/linkwrap/internal/config"
	"github.com/MrSnakeDoc/linkwrap/internal/httpserver"
	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	"github.com/MrSnakeDoc/linkwrap/internal/metrics"
	"github.com/MrSnakeDoc/linkwrap/internal/ratelimit"
	"github.com/MrSnakeDoc/linkwrap/internal/scheduler"
	"github.com/MrSnakeDoc/linkwrap/internal/version"
)

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	pipeline *Pipeline
	bot      *bot.Bot
	server   *httpserver.Server
	sweeper  *scheduler.RateLimitSweeper
	reloader *scheduler.BrandingReloader // nil without a branding file
}

// New wires every component. Nothing is started yet except the redis
// connection, which fails fast when configured but unreachable.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	if cfg.UsesPlaceholderCode() {
		loggerClient.Warn("⚠️ AFFILIATE_CODE is not set, links carry a placeholder code")
	}

	m := metrics.New()

	pipeline, err := NewPipeline(ctx, cfg, loggerClient, m)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(ratelimit.Options{
		Limit:    cfg.SpamLimit,
		Window:   cfg.SpamWindow,
		MaxUsers: cfg.SpamMaxUsers,
	})
	sweeper := scheduler.NewRateLimitSweeper(limiter, loggerClient.Named("sweeper"), m, cfg.SpamSweepInterval)

	var (
		reloader      *scheduler.BrandingReloader
		reloadTrigger chan struct{}
	)
	if cfg.BrandingFile != "" {
		loggerClient.Info("branding file configured",
			logger.String("file", cfg.BrandingFile))
		reloadTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewBrandingReloader(
			cfg.BrandingFile,
			pipeline.Table.Names(),
			pipeline.Branding,
			loggerClient.Named("branding"),
			cfg.ReloadInterval,
			reloadTrigger,
		)
	} else {
		loggerClient.Info("branding file not configured, using built-in emojis and labels")
	}

	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		_ = pipeline.Close()
		return nil, err
	}
	b, err := bot.New(bot.Config{
		ChannelID:            cfg.ChannelID,
		SpamTimeout:          cfg.SpamTimeout,
		TimeoutReason:        cfg.TimeoutAuditReason,
		MaxReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectBackoff:     cfg.ReconnectBackoff,
		HandleTimeout:        cfg.HandleTimeout,
	}, bot.Deps{
		Session:    session,
		Converter:  pipeline.Converter,
		Spam:       limiter,
		Agents:     pipeline.Table,
		AgentEmoji: pipeline.AgentEmoji,
		Logger:     loggerClient.Named("bot"),
		Metrics:    m,
	})
	if err != nil {
		_ = pipeline.Close()
		return nil, err
	}

	// Dependencies passed to routes.
	d := deps.Deps{
		Logger:              loggerClient,
		StartTime:           time.Now(),
		Version:             version.Version,
		Commit:              version.Commit,
		BuildDate:           version.BuildDate,
		GoVersion:           version.GoVersion,
		TimeNow:             time.Now,
		AllowedHosts:        cfg.AllowedHosts,
		AllowedCIDRS:        cfg.AllowedCIDRS,
		TrustProxy:          cfg.TrustProxy,
		ConvertBurst:        cfg.ConvertBurst,
		ConvertRefillPerMin: cfg.ConvertRefillPerMin,
		Converter:           pipeline.Converter,
		Branding:            pipeline.Branding,
		BrandingFile:        cfg.BrandingFile,
		ReloadTrigger:       reloadTrigger,
		Store:               pipeline.Store,
		Metrics:             m,
		BotConnected:        b.Connected,
		TrackedUsers:        limiter.Size,
		CacheEntries:        pipeline.Cache.Size,
	}

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		pipeline: pipeline,
		bot:      b,
		server:   httpserver.New(cfg, loggerClient.Named("http"), d),
		sweeper:  sweeper,
		reloader: reloader,
	}, nil
}

// Run starts everything and blocks until ctx is cancelled or a component
// fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("🚀 Starting linkwrap %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	defer func() {
		if err := a.pipeline.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		}
	}()

	// Load branding before the first message is handled
	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start branding reloader: %w", err)
		}
		defer a.reloader.Stop()
		a.logger.Info("branding reloader started",
			logger.Duration("interval", a.cfg.ReloadInterval))
	}

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start rate-limit sweeper: %w", err)
	}
	defer a.sweeper.Stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	if err := a.bot.Start(ctx); err != nil {
		return errors.Join(err, a.stopServer())
	}
	a.logger.Info("🤖 bot listening",
		logger.String("channel_id", a.cfg.ChannelID),
		logger.Int("agents", len(a.pipeline.Table.All())))

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	if err := a.bot.Stop(); err != nil {
		a.logger.Warn("failed to close discord session", logger.Error(err))
	}
	if err := a.stopServer(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if runErr != nil {
		return runErr
	}

	a.logger.Info("✅ linkwrap stopped cleanly")
	return nil
}

func (a *App) stopServer() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}
