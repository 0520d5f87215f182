package config

import (
	"reflect"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		wantPanic bool
	}{
		{
			name:  "variable set",
			key:   "TEST_VAR",
			value: "test_value",
		},
		{
			name:      "variable empty",
			key:       "TEST_VAR_MISSING",
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      int
		expected int
	}{
		{"valid integer", "42", 1, 42},
		{"invalid integer uses default", "not_a_number", 7, 7},
		{"missing variable uses default", "", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)
			if got := getenvInt("TEST_INT", tt.def); got != tt.expected {
				t.Errorf("getenvInt() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{"single value", "value1", []string{"value1"}},
		{"multiple values", "value1, value2 ,value3", []string{"value1", "value2", "value3"}},
		{"quotes and blanks", `"10.0.0.0/8", , '192.168.1.1'`, []string{"10.0.0.0/8", "192.168.1.1"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitAndTrim(tt.value); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("splitAndTrim() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{"valid duration", "5s", 1 * time.Second, 5 * time.Second},
		{"invalid duration uses default", "invalid", 10 * time.Second, 10 * time.Second},
		{"missing variable uses default", "", 15 * time.Second, 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := mustDuration("TEST_DURATION", tt.def); got != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{"true value", "true", false, true},
		{"false value", "false", true, false},
		{"invalid value uses default", "invalid", true, true},
		{"missing variable uses default", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if got := mustBool("TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("mustBool() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func clearDiscordEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("ALLOWED_CHANNEL_ID", "")
	t.Setenv("AFFILIATE_CODE", "")
	t.Setenv("LINKWRAP_LOG_LEVEL", "info")
}

func TestLoadRequiresDiscordCredentials(t *testing.T) {
	clearDiscordEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")

	defer func() {
		if r := recover(); r == nil {
			t.Error("Load() without ALLOWED_CHANNEL_ID should have panicked")
		}
	}()
	Load()
}

func TestLoad(t *testing.T) {
	clearDiscordEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("ALLOWED_CHANNEL_ID", "123")
	t.Setenv("AFFILIATE_CODE", "abc")
	t.Setenv("LINKWRAP_SPAM_WINDOW", "30s")
	t.Setenv("LINKWRAP_ALLOWED_CIDRS", "10.0.0.0/8, 127.0.0.1")

	cfg := Load()
	if cfg.DiscordToken != "token" || cfg.ChannelID != "123" {
		t.Errorf("discord settings = %q, %q", cfg.DiscordToken, cfg.ChannelID)
	}
	if cfg.AffiliateCode != "abc" || cfg.UsesPlaceholderCode() {
		t.Errorf("AffiliateCode = %q", cfg.AffiliateCode)
	}
	if cfg.SpamWindow != 30*time.Second {
		t.Errorf("SpamWindow = %v", cfg.SpamWindow)
	}
	if want := []string{"10.0.0.0/8", "127.0.0.1"}; !reflect.DeepEqual(cfg.AllowedCIDRS, want) {
		t.Errorf("AllowedCIDRS = %v, want %v", cfg.AllowedCIDRS, want)
	}
}

func TestLoadOfflineDefaults(t *testing.T) {
	clearDiscordEnv(t)

	cfg := LoadOffline()
	if cfg.DiscordToken != "" || cfg.ChannelID != "" {
		t.Errorf("offline config should not need discord credentials")
	}
	if !cfg.UsesPlaceholderCode() {
		t.Errorf("AffiliateCode = %q, want placeholder", cfg.AffiliateCode)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"ListenPort", cfg.ListenPort, ":8080"},
		{"AffiliateBaseURL", cfg.AffiliateBaseURL, "https://www.kakobuy.com/item/details"},
		{"AffiliateParam", cfg.AffiliateParam, "affcode"},
		{"SpamLimit", cfg.SpamLimit, 3},
		{"SpamWindow", cfg.SpamWindow, 15 * time.Second},
		{"SpamTimeout", cfg.SpamTimeout, 60 * time.Second},
		{"HTTPTimeout", cfg.HTTPTimeout, 10 * time.Second},
		{"MaxRedirectHops", cfg.MaxRedirectHops, 3},
		{"DispatchConcurrency", cfg.DispatchConcurrency, 4},
		{"ReconnectAttempts", cfg.ReconnectAttempts, 5},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadRejectsZeroSpamLimit(t *testing.T) {
	clearDiscordEnv(t)
	t.Setenv("LINKWRAP_SPAM_LIMIT", "0")

	defer func() {
		if r := recover(); r == nil {
			t.Error("LoadOffline() with a zero spam limit should have panicked")
		}
	}()
	LoadOffline()
}

func TestRedacted(t *testing.T) {
	cfg := &Config{DiscordToken: "secret", RedisPassword: "pw", RedisUser: "default"}
	r := cfg.Redacted()
	if r.DiscordToken == "secret" || r.RedisPassword == "pw" || r.RedisUser == "default" {
		t.Errorf("Redacted() leaked a secret: %+v", r)
	}
	if cfg.DiscordToken != "secret" {
		t.Error("Redacted() modified the original")
	}
}
