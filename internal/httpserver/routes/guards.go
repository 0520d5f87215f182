package routes

import (
	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/mw"
)

// Client IPs must be in LINKWRAP_ALLOWED_CIDRS.
func opsNetwork(d deps.Deps) Middleware {
	return mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
}

// Host header must match LINKWRAP_ALLOWED_HOSTS.
func knownHost(d deps.Deps) Middleware {
	return mw.EnforceHost(d.AllowedHosts, d.Logger)
}

// Per-IP token bucket for the public conversion API.
func convertQuota(d deps.Deps) Middleware {
	return mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.ConvertBurst,
		RefillPerIPPerMin: d.ConvertRefillPerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
		Logger:            d.Logger,
		Now:               d.TimeNow,
	})
}
