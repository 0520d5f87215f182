// Package ratelimit detects users posting the same link repeatedly.
package ratelimit

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/MrSnakeDoc/linkwrap/internal/domain"
)

const (
	DefaultLimit    = 3
	DefaultWindow   = 15 * time.Second
	DefaultMaxUsers = 10_000
)

// Options configures a Limiter.
type Options struct {
	Limit    int
	Window   time.Duration
	MaxUsers int
	// Now overrides the clock (tests).
	Now func() time.Time
}

// state is the per-user record. It is replaced, never mutated in place,
// inside Compute.
type state struct {
	counts   map[string]int
	lastSeen time.Time
}

// Limiter tracks per-user link counts within a sliding idle window.
type Limiter struct {
	limit    int
	window   time.Duration
	maxUsers int
	now      func() time.Time
	users    *xsync.Map[string, state]
}

// New builds a limiter with defaults for zero fields.
func New(opts Options) *Limiter {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.MaxUsers <= 0 {
		opts.MaxUsers = DefaultMaxUsers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Limiter{
		limit:    opts.Limit,
		window:   opts.Window,
		maxUsers: opts.MaxUsers,
		now:      opts.Now,
		users:    xsync.NewMap[string, state](),
	}
}

// Check records links for userID and reports whether the user is spamming:
// some link's count within the window reached the limit.
func (l *Limiter) Check(userID string, links []domain.NormalizedLink) bool {
	now := l.now()

	if l.users.Size() >= l.maxUsers {
		if _, ok := l.users.Load(userID); !ok {
			l.Sweep()
		}
	}

	spam := false
	l.users.Compute(userID, func(old state, loaded bool) (state, xsync.ComputeOp) {
		counts := make(map[string]int, len(old.counts)+len(links))
		if loaded && now.Sub(old.lastSeen) <= l.window {
			for k, v := range old.counts {
				counts[k] = v
			}
		}
		for _, link := range links {
			counts[link.Original]++
			if counts[link.Original] >= l.limit {
				spam = true
			}
		}
		return state{counts: counts, lastSeen: now}, xsync.UpdateOp
	})
	return spam
}

// Sweep drops users idle for longer than the window and returns how many
// were removed.
func (l *Limiter) Sweep() int {
	now := l.now()
	removed := 0
	l.users.Range(func(userID string, _ state) bool {
		l.users.Compute(userID, func(cur state, loaded bool) (state, xsync.ComputeOp) {
			if !loaded {
				return cur, xsync.CancelOp
			}
			if now.Sub(cur.lastSeen) > l.window {
				removed++
				return cur, xsync.DeleteOp
			}
			return cur, xsync.CancelOp
		})
		return true
	})
	return removed
}

// Size returns the number of tracked users.
func (l *Limiter) Size() int {
	return l.users.Size()
}

// Window is the idle period after which a user's counts reset.
func (l *Limiter) Window() time.Duration {
	return l.window
}
