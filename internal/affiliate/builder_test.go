package affiliate

import (
	"net/url"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/linkwrap/internal/domain"
	"github.com/MrSnakeDoc/linkwrap/internal/index"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

func newBuilder(t *testing.T, opts Options) *Builder {
	t.Helper()
	b, err := New(opts, index.NewBrandingIndex(), logger.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

func TestRedirect(t *testing.T) {
	b := newBuilder(t, Options{Code: "abc123"})
	canonical := "https://weidian.com/item.html?itemID=12345"

	tests := []struct {
		name string
		link domain.NormalizedLink
		want string
	}{
		{
			name: "needs affiliate",
			link: domain.NormalizedLink{Canonical: canonical, NeedsAffiliateParam: true},
			want: "https://www.kakobuy.com/item/details?url=" + url.QueryEscape(canonical) + "&affcode=abc123",
		},
		{
			name: "already carries affiliate",
			link: domain.NormalizedLink{Canonical: canonical, NeedsAffiliateParam: false},
			want: "https://www.kakobuy.com/item/details?url=" + url.QueryEscape(canonical),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Redirect(tt.link)
			if err != nil {
				t.Fatalf("Redirect() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Redirect() = %q, want %q", got, tt.want)
			}
			if n := strings.Count(got, "affcode="); n > 1 {
				t.Errorf("affcode appears %d times", n)
			}
		})
	}
}

func TestRedirectBaseWithExistingParams(t *testing.T) {
	b := newBuilder(t, Options{
		BaseURL: "https://aff.example/go?affcode=stale&src=bot",
		Code:    "fresh",
	})

	got, err := b.Redirect(domain.NormalizedLink{
		Canonical:           "https://item.taobao.com/item.htm?id=1",
		NeedsAffiliateParam: true,
	})
	if err != nil {
		t.Fatalf("Redirect() error = %v", err)
	}

	u, _ := url.Parse(got)
	q := u.Query()
	if vs := q["affcode"]; len(vs) != 1 || vs[0] != "fresh" {
		t.Errorf("affcode = %v, want exactly [fresh]", vs)
	}
	if q.Get("src") != "bot" || q.Get("url") != "https://item.taobao.com/item.htm?id=1" {
		t.Errorf("query = %v", q)
	}
}

func TestRedirectRejectsEmptyCanonical(t *testing.T) {
	b := newBuilder(t, Options{Code: "x"})
	if _, err := b.Redirect(domain.NormalizedLink{}); err == nil {
		t.Error("Redirect() without canonical should fail")
	}
}

func TestNewRejectsInvalidBase(t *testing.T) {
	if _, err := New(Options{BaseURL: "not a url"}, index.NewBrandingIndex(), logger.Nop()); err == nil {
		t.Error("New() with invalid base url should fail")
	}
}

func TestBuild(t *testing.T) {
	b := newBuilder(t, Options{Code: "abc"})

	links := []domain.NormalizedLink{
		{
			Original:            "https://cssbuy.com/item-taobao-987654.html",
			Canonical:           "https://item.taobao.com/item.htm?id=987654",
			Marketplace:         domain.MarketplaceTaobao,
			NeedsAffiliateParam: true,
			SourceAgent:         "cssbuy",
		},
		{Original: "broken"},
		{
			Original:            "https://detail.1688.com/offer/1.html",
			Canonical:           "https://detail.1688.com/offer/1.html",
			Marketplace:         domain.Marketplace1688,
			NeedsAffiliateParam: true,
		},
	}

	descriptions, buttons := b.Build(links)
	if len(descriptions) != 2 {
		t.Fatalf("descriptions = %d, want 2 (broken link skipped)", len(descriptions))
	}
	if len(buttons) != 4 {
		t.Fatalf("buttons = %d, want 4", len(buttons))
	}

	redirect := "https://www.kakobuy.com/item/details?url=" + url.QueryEscape(links[0].Canonical) + "&affcode=abc"
	wantFirst := "🔗 TAOBAO (from cssbuy):\nOriginal: https://item.taobao.com/item.htm?id=987654\nKakoBuy: " + redirect + "\n"
	if descriptions[0] != wantFirst {
		t.Errorf("descriptions[0] = %q, want %q", descriptions[0], wantFirst)
	}
	if !strings.HasPrefix(descriptions[1], "🔗 1688:\n") {
		t.Errorf("direct link description = %q", descriptions[1])
	}

	if buttons[0] != (Button{Label: "TAOBAO", URL: links[0].Canonical, Emoji: index.DefaultEmoji}) {
		t.Errorf("buttons[0] = %+v", buttons[0])
	}
	if buttons[1] != (Button{Label: "KakoBuy", URL: redirect, Emoji: index.DefaultAffiliateEmoji}) {
		t.Errorf("buttons[1] = %+v", buttons[1])
	}
}

func TestBuildUsesBranding(t *testing.T) {
	idx := index.NewBrandingIndex()
	idx.Update(domain.Branding{
		Marketplaces: map[domain.Marketplace]domain.Style{
			domain.MarketplaceWeidian: {Emoji: "🟠", Label: "WD"},
		},
	})
	b, err := New(Options{}, idx, logger.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, buttons := b.Build([]domain.NormalizedLink{{
		Canonical:   "https://weidian.com/item.html?itemID=1",
		Marketplace: domain.MarketplaceWeidian,
	}})
	if len(buttons) != 2 || buttons[0].Emoji != "🟠" || buttons[0].Label != "WD" {
		t.Errorf("buttons = %+v", buttons)
	}
}
