package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	"github.com/MrSnakeDoc/linkwrap/internal/utils"
)

// RateLimitConfig configures a per-IP token bucket.
type RateLimitConfig struct {
	Burst             int
	RefillPerIPPerMin int
	MaxEntries        int           // sweep early once this many IPs are tracked
	SweepInterval     time.Duration // default 1m
	IdleTTL           time.Duration // default 15m
	TrustProxy        bool          // resolve IP from proxy headers when true

	Logger logger.Logger    // optional, logs rejections at debug level
	Now    func() time.Time // for testing, defaults to time.Now
}

// bucket is replaced as a value inside Compute, never mutated in place.
type bucket struct {
	tokens  float64
	updated time.Time
}

type decision struct {
	allowed    bool
	remaining  int
	retryAfter int // seconds, set when rejected
}

type limiter struct {
	cfg       RateLimitConfig
	rate      float64 // tokens per second
	capacity  float64
	buckets   *xsync.Map[string, bucket]
	lastSweep atomic.Int64 // unix nanos
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	cfg.Burst = max(cfg.Burst, 1)
	cfg.RefillPerIPPerMin = max(cfg.RefillPerIPPerMin, 1)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	l := &limiter{
		cfg:      cfg,
		rate:     float64(cfg.RefillPerIPPerMin) / 60.0,
		capacity: float64(cfg.Burst),
		buckets:  xsync.NewMap[string, bucket](),
	}
	l.lastSweep.Store(cfg.Now().UnixNano())
	return l
}

// allow refills the bucket of key for the time elapsed and takes one token.
func (l *limiter) allow(key string, now time.Time) decision {
	if l.cfg.MaxEntries > 0 && l.buckets.Size() >= l.cfg.MaxEntries {
		l.sweep(now)
	}

	var d decision
	l.buckets.Compute(key, func(b bucket, loaded bool) (bucket, xsync.ComputeOp) {
		if !loaded {
			b = bucket{tokens: l.capacity, updated: now}
		}
		if elapsed := now.Sub(b.updated).Seconds(); elapsed > 0 {
			b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.rate)
			b.updated = now
		}

		if b.tokens >= 1 {
			b.tokens--
			d = decision{allowed: true, remaining: int(math.Floor(b.tokens))}
		} else {
			d = decision{retryAfter: max(int(math.Ceil((1-b.tokens)/l.rate)), 1)}
		}
		return b, xsync.UpdateOp
	})
	return d
}

// sweep drops buckets idle for longer than IdleTTL.
func (l *limiter) sweep(now time.Time) {
	l.buckets.Range(func(key string, _ bucket) bool {
		l.buckets.Compute(key, func(b bucket, loaded bool) (bucket, xsync.ComputeOp) {
			if loaded && now.Sub(b.updated) > l.cfg.IdleTTL {
				return b, xsync.DeleteOp
			}
			return b, xsync.CancelOp
		})
		return true
	})
	l.lastSweep.Store(now.UnixNano())
}

// sweepIfDue sweeps at most once per SweepInterval across all callers.
func (l *limiter) sweepIfDue(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(l.cfg.SweepInterval) {
		return
	}
	if l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		l.sweep(now)
	}
}

// RateLimit rejects callers that exhausted their bucket with 429.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limitStr := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := l.cfg.Now()
			l.sweepIfDue(now)

			ip := utils.ClientIP(r, l.cfg.TrustProxy)
			d := l.allow(ip, now)

			w.Header().Set("X-RateLimit-Limit", limitStr)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
			if !d.allowed {
				l.cfg.Logger.Debug("rate limited",
					logger.String("ip", ip),
					logger.Int("retry_after", d.retryAfter))
				w.Header().Set("Retry-After", strconv.Itoa(d.retryAfter))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
