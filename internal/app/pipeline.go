package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkwrap/internal/affiliate"
	"github.com/MrSnakeDoc/linkwrap/internal/agents"
	"github.com/MrSnakeDoc/linkwrap/internal/cache"
	"github.com/MrSnakeDoc/linkwrap/internal/config"
	"github.com/MrSnakeDoc/linkwrap/internal/convert"
	"github.com/MrSnakeDoc/linkwrap/internal/dispatch"
	"github.com/MrSnakeDoc/linkwrap/internal/fetch"
	"github.com/MrSnakeDoc/linkwrap/internal/index"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	"github.com/MrSnakeDoc/linkwrap/internal/metrics"
	"github.com/MrSnakeDoc/linkwrap/internal/redis"
	redisstore "github.com/MrSnakeDoc/linkwrap/internal/store/redis"
)

// Pipeline is everything needed to turn text into affiliate links. Both the
// serve and convert commands build one.
type Pipeline struct {
	Converter   *convert.Converter
	Table       *agents.Table
	Branding    *index.BrandingIndex
	Cache       *cache.Resolutions
	Store       *redisstore.Store // nil when redis is disabled
	redisClient *goredis.Client
}

// NewPipeline wires the resolver, caches, agent table, engine and builder.
// m may be nil.
func NewPipeline(ctx context.Context, cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*Pipeline, error) {
	p := &Pipeline{Branding: index.NewBrandingIndex()}

	var remote cache.Remote
	if cfg.RedisAddr != "" {
		store, client, err := OpenStore(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		p.redisClient = client
		p.Store = store
		remote = store
	} else {
		log.Info("redis not configured, resolution cache is memory only")
	}

	resolutions, err := cache.New(cfg.CacheSize, cfg.CacheTTL, remote, log.Named("cache"))
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to build resolution cache: %w", err)
	}
	p.Cache = resolutions

	client := fetch.New(fetch.Options{
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
	}, resolutions, log.Named("fetch"), m)

	p.Table = agents.New(agents.Options{
		Resolver: client,
		MaxHops:  cfg.MaxRedirectHops,
		Logger:   log.Named("agents"),
	})

	builder, err := affiliate.New(affiliate.Options{
		BaseURL: cfg.AffiliateBaseURL,
		Param:   cfg.AffiliateParam,
		Code:    cfg.AffiliateCode,
	}, p.Branding, log.Named("affiliate"))
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("invalid affiliate configuration: %w", err)
	}

	engine := dispatch.New(p.Table, cfg.DispatchConcurrency, log.Named("dispatch"), m)
	p.Converter = convert.New(engine, builder)
	return p, nil
}

// AgentEmoji is the branding override for an agent, or its built-in emoji.
func (p *Pipeline) AgentEmoji(name string) string {
	fallback := ""
	if a, ok := p.Table.ByName(name); ok {
		fallback = a.Emoji
	}
	return p.Branding.AgentEmoji(name, fallback)
}

// Close releases the caches and the redis connection.
func (p *Pipeline) Close() error {
	if p.Cache != nil {
		p.Cache.Close()
	}
	if p.redisClient != nil {
		return p.redisClient.Close()
	}
	return nil
}

// OpenStore connects to the configured Redis and wraps it in the resolution
// store. The caller owns the returned client.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (*redisstore.Store, *goredis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil, errors.New("LINKWRAP_REDIS_ADDR is not set")
	}
	client, err := redis.New(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log.Named("redis"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return redisstore.NewStore(client), client, nil
}
