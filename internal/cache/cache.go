// Package cache holds resolved network lookups in memory with an optional
// Redis tier behind it.
package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter"

	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

// Remote is the second tier. store/redis.Store satisfies it.
type Remote interface {
	GetCachedResolution(ctx context.Context, key string) (string, error)
	CacheResolution(ctx context.Context, key, resolved string, ttl time.Duration) error
}

// Resolutions is a two-tier cache: a bounded otter cache in front of an
// optional Remote. Remote failures are logged and treated as misses.
type Resolutions struct {
	local  otter.Cache[string, string]
	remote Remote
	ttl    time.Duration
	logger logger.Logger
}

// New builds the cache. remote may be nil.
func New(size int, ttl time.Duration, remote Remote, log logger.Logger) (*Resolutions, error) {
	if size <= 0 {
		size = 10_000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	local, err := otter.MustBuilder[string, string](size).
		Cost(func(_ string, _ string) uint32 { return 1 }).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &Resolutions{
		local:  local,
		remote: remote,
		ttl:    ttl,
		logger: log,
	}, nil
}

// Get looks the key up locally, then remotely. A remote hit is promoted.
func (c *Resolutions) Get(ctx context.Context, key string) (string, bool) {
	if v, ok := c.local.Get(key); ok {
		return v, true
	}
	if c.remote == nil {
		return "", false
	}

	v, err := c.remote.GetCachedResolution(ctx, key)
	if err != nil {
		c.logger.Warn("remote cache read failed",
			logger.String("key", key),
			logger.Error(err))
		return "", false
	}
	if v == "" {
		return "", false
	}

	c.local.Set(key, v)
	return v, true
}

// Set writes through both tiers.
func (c *Resolutions) Set(ctx context.Context, key, value string) {
	c.local.Set(key, value)
	if c.remote == nil {
		return
	}
	if err := c.remote.CacheResolution(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("remote cache write failed",
			logger.String("key", key),
			logger.Error(err))
	}
}

// Size returns the number of entries held in memory.
func (c *Resolutions) Size() int {
	return c.local.Size()
}

// Close stops the local cache's background goroutines.
func (c *Resolutions) Close() {
	c.local.Close()
}
