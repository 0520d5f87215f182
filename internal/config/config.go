package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PlaceholderAffiliateCode is used when AFFILIATE_CODE is not set.
const PlaceholderAffiliateCode = "YOUR_AFF_CODE"

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Discord
	DiscordToken       string        // bot token, required for serve
	ChannelID          string        // the only channel the bot answers in
	ReconnectAttempts  int           // startup connection attempts
	ReconnectBackoff   time.Duration // cap between connection attempts
	SpamLimit          int           // repeats of one link that count as spam
	SpamWindow         time.Duration // window the repeats are counted in
	SpamTimeout        time.Duration // how long a spammer is timed out
	SpamMaxUsers       int           // tracked users before a forced sweep
	SpamSweepInterval  time.Duration // background cleanup of idle users
	HandleTimeout      time.Duration // upper bound for one message
	TimeoutAuditReason string        // shown in the guild audit log

	// Affiliate redirect
	AffiliateCode    string
	AffiliateBaseURL string
	AffiliateParam   string

	// Resolution
	HTTPTimeout         time.Duration // outbound request timeout
	UserAgent           string
	MaxRedirectHops     int
	DispatchConcurrency int
	CacheSize           int           // L1 entries
	CacheTTL            time.Duration // L1 and L2 expiry

	// Branding
	BrandingFile   string        // optional yaml overrides, empty = built-in defaults
	ReloadInterval time.Duration // interval to reload the branding file (default: 24h)

	// Redis, optional second cache tier
	RedisAddr             string        // ex: "localhost:6379", empty = disabled
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Ops server
	AllowedHosts        []string // optional, restrict /reload and /api/convert to these Host headers
	AllowedCIDRS        []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy          bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	ConvertBurst        int      // token bucket size of /api/convert per IP
	ConvertRefillPerMin int      // tokens added per minute
}

// Load reads the configuration for the serve command. Discord credentials
// are required.
func Load() *Config {
	loadDotEnv()
	cfg := load()
	cfg.DiscordToken = requireEnv("DISCORD_TOKEN")
	cfg.ChannelID = requireEnv("ALLOWED_CHANNEL_ID")
	cfg.validate()
	return cfg
}

// LoadOffline reads the configuration for commands that never connect to
// Discord.
func LoadOffline() *Config {
	loadDotEnv()
	cfg := load()
	cfg.DiscordToken = getenv("DISCORD_TOKEN", "")
	cfg.ChannelID = getenv("ALLOWED_CHANNEL_ID", "")
	cfg.validate()
	return cfg
}

func load() *Config {
	return &Config{
		// Server settings
		ListenPort:      getenv("LINKWRAP_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("LINKWRAP_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("LINKWRAP_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LINKWRAP_PRETTY_LOG", true),

		// Discord
		ReconnectAttempts:  getenvInt("LINKWRAP_DISCORD_RECONNECT_ATTEMPTS", 5),
		ReconnectBackoff:   mustDuration("LINKWRAP_DISCORD_RECONNECT_BACKOFF", 60*time.Second),
		SpamLimit:          getenvInt("LINKWRAP_SPAM_LIMIT", 3),
		SpamWindow:         mustDuration("LINKWRAP_SPAM_WINDOW", 15*time.Second),
		SpamTimeout:        mustDuration("LINKWRAP_SPAM_TIMEOUT", 60*time.Second),
		SpamMaxUsers:       getenvInt("LINKWRAP_SPAM_MAX_USERS", 10000),
		SpamSweepInterval:  mustDuration("LINKWRAP_SPAM_SWEEP_INTERVAL", time.Minute),
		HandleTimeout:      mustDuration("LINKWRAP_HANDLE_TIMEOUT", 30*time.Second),
		TimeoutAuditReason: getenv("LINKWRAP_TIMEOUT_REASON", "link spam"),

		// Affiliate
		AffiliateCode:    getenv("AFFILIATE_CODE", PlaceholderAffiliateCode),
		AffiliateBaseURL: getenv("LINKWRAP_AFFILIATE_BASE_URL", "https://www.kakobuy.com/item/details"),
		AffiliateParam:   getenv("LINKWRAP_AFFILIATE_PARAM", "affcode"),

		// Resolution
		HTTPTimeout:         mustDuration("LINKWRAP_HTTP_TIMEOUT", 10*time.Second),
		UserAgent:           getenv("LINKWRAP_USER_AGENT", "Mozilla/5.0"),
		MaxRedirectHops:     getenvInt("LINKWRAP_MAX_REDIRECT_HOPS", 3),
		DispatchConcurrency: getenvInt("LINKWRAP_DISPATCH_CONCURRENCY", 4),
		CacheSize:           getenvInt("LINKWRAP_RESOLUTION_CACHE_SIZE", 10000),
		CacheTTL:            mustDuration("LINKWRAP_RESOLUTION_CACHE_TTL", time.Hour),

		// Branding
		BrandingFile:   getenv("LINKWRAP_BRANDING_FILE", ""),
		ReloadInterval: mustDuration("LINKWRAP_RELOAD_INTERVAL", 24*time.Hour),

		// Redis settings
		RedisAddr:             getenv("LINKWRAP_REDIS_ADDR", ""),
		RedisUser:             getenv("LINKWRAP_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("LINKWRAP_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("LINKWRAP_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("LINKWRAP_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:        splitAndTrim(getenv("LINKWRAP_ALLOWED_HOSTS", "")),
		AllowedCIDRS:        parseAllowedIPs(getenv("LINKWRAP_ALLOWED_CIDRS", "")),
		TrustProxy:          mustBool("LINKWRAP_TRUST_PROXY", false),
		ConvertBurst:        getenvInt("LINKWRAP_CONVERT_BURST", 10),
		ConvertRefillPerMin: getenvInt("LINKWRAP_CONVERT_REFILL_PER_MIN", 30),
	}
}

func (cfg *Config) validate() {
	// Validate Redis password configuration
	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: LINKWRAP_REDIS_PASSWORD is required when LINKWRAP_REDIS_PASSWORD_REQUIRED=true")
	}
	if cfg.SpamLimit < 1 {
		panic(fmt.Sprintf("❌ FATAL: LINKWRAP_SPAM_LIMIT must be at least 1, got %d", cfg.SpamLimit))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}
}

// Redacted returns a copy safe to print.
func (cfg *Config) Redacted() Config {
	cfgCopy := *cfg
	if cfg.DiscordToken != "" {
		cfgCopy.DiscordToken = "***REDACTED***"
	}
	if cfg.RedisPassword != "" {
		cfgCopy.RedisPassword = "***REDACTED***"
	}
	if cfg.RedisUser != "" {
		cfgCopy.RedisUser = "***REDACTED***"
	}
	return cfgCopy
}

// UsesPlaceholderCode reports whether links would carry no real affiliate.
func (cfg *Config) UsesPlaceholderCode() bool {
	return cfg.AffiliateCode == PlaceholderAffiliateCode
}

// loadDotEnv loads .env from the working directory when present. Variables
// already set in the environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[WARN] failed to load .env: %v\n", err)
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
