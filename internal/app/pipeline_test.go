package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/linkwrap/internal/config"
	"github.com/MrSnakeDoc/linkwrap/internal/domain"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

func offlineConfig() *config.Config {
	return &config.Config{
		AffiliateCode:       "abc",
		AffiliateBaseURL:    "https://www.kakobuy.com/item/details",
		AffiliateParam:      "affcode",
		HTTPTimeout:         time.Second,
		UserAgent:           "test",
		MaxRedirectHops:     3,
		DispatchConcurrency: 2,
		CacheSize:           100,
		CacheTTL:            time.Minute,
	}
}

func TestNewPipelineWithoutRedis(t *testing.T) {
	p, err := NewPipeline(context.Background(), offlineConfig(), logger.Nop(), nil)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	defer p.Close()

	if p.Store != nil {
		t.Error("Store should be nil when redis is not configured")
	}

	conv := p.Converter.Convert(context.Background(), "https://weidian.com/item.html?itemID=42&spider=1")
	if !conv.Result.Accepted() {
		t.Fatalf("direct weidian link rejected: %+v", conv.Result)
	}
	link := conv.Result.Valid[0]
	if link.Marketplace != domain.MarketplaceWeidian || link.Canonical != "https://weidian.com/item.html?itemID=42" {
		t.Errorf("link = %+v", link)
	}
	if len(conv.Buttons) != 2 || !strings.HasSuffix(conv.Buttons[1].URL, "&affcode=abc") {
		t.Errorf("buttons = %+v", conv.Buttons)
	}
}

func TestNewPipelineRejectsBadAffiliateURL(t *testing.T) {
	cfg := offlineConfig()
	cfg.AffiliateBaseURL = "::not a url"
	if _, err := NewPipeline(context.Background(), cfg, logger.Nop(), nil); err == nil {
		t.Error("NewPipeline() should fail on an invalid affiliate base url")
	}
}

func TestAgentEmojiFallsBackToTable(t *testing.T) {
	p, err := NewPipeline(context.Background(), offlineConfig(), logger.Nop(), nil)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	defer p.Close()

	a, ok := p.Table.ByName("sugargoo")
	if !ok {
		t.Fatal("sugargoo missing from table")
	}
	if got := p.AgentEmoji("sugargoo"); got != a.Emoji {
		t.Errorf("AgentEmoji() = %q, want %q", got, a.Emoji)
	}
	if got := p.AgentEmoji("unknown"); got != "" {
		t.Errorf("AgentEmoji(unknown) = %q, want empty", got)
	}
}
