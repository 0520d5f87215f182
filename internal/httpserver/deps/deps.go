package deps

import (
	"time"

	"github.com/MrSnakeDoc/linkwrap/internal/convert"
	"github.com/MrSnakeDoc/linkwrap/internal/index"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	"github.com/MrSnakeDoc/linkwrap/internal/metrics"
	redisstore "github.com/MrSnakeDoc/linkwrap/internal/store/redis"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	AllowedHosts        []string // Host headers allowed on /reload and /api/convert
	AllowedCIDRS        []string // IPs allowed on the ops endpoints
	TrustProxy          bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)
	ConvertBurst        int      // token bucket size per IP on /api/convert
	ConvertRefillPerMin int      // tokens refilled per IP per minute

	Converter     *convert.Converter   // shared link pipeline
	Branding      *index.BrandingIndex // current emoji/label overrides
	BrandingFile  string               // empty when branding comes from defaults
	ReloadTrigger chan struct{}        // manual branding reload (nil if no branding file)
	Store         *redisstore.Store    // L2 resolution cache (nil if redis disabled)
	Metrics       *metrics.Metrics     // app registry
	BotConnected  func() bool          // nil when the bot does not run
	TrackedUsers  func() int           // rate limiter state size
	CacheEntries  func() int           // L1 resolution cache size
}

// Now returns the current time through TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
