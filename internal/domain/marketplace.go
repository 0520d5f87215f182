package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// Marketplace is one of the underlying e-commerce sites whose item pages are
// the canonical target of every conversion.
type Marketplace int

const (
	// MarketplaceUnknown is the zero value and never matches anything.
	MarketplaceUnknown Marketplace = iota
	MarketplaceTaobao
	MarketplaceWeidian
	Marketplace1688
)

// Marketplaces lists every known marketplace in detection order.
var Marketplaces = []Marketplace{MarketplaceTaobao, MarketplaceWeidian, Marketplace1688}

var (
	taobaoHost  = regexp.MustCompile(`(^|\.)(taobao|tmall)\.com$`)
	weidianHost = regexp.MustCompile(`(^|\.)weidian\.com$`)
	aliHost     = regexp.MustCompile(`(^|\.)1688\.com$`)

	offerID = regexp.MustCompile(`^\d+$`)
)

// Name returns the lowercase marketplace key used in configuration and labels.
func (m Marketplace) Name() string {
	switch m {
	case MarketplaceTaobao:
		return "taobao"
	case MarketplaceWeidian:
		return "weidian"
	case Marketplace1688:
		return "1688"
	default:
		return ""
	}
}

func (m Marketplace) String() string { return m.Name() }

// MarketplaceByName resolves a marketplace from its Name.
func MarketplaceByName(name string) (Marketplace, bool) {
	for _, m := range Marketplaces {
		if m.Name() == strings.ToLower(name) {
			return m, true
		}
	}
	return MarketplaceUnknown, false
}

func (m Marketplace) hostPattern() *regexp.Regexp {
	switch m {
	case MarketplaceTaobao:
		return taobaoHost
	case MarketplaceWeidian:
		return weidianHost
	case Marketplace1688:
		return aliHost
	default:
		return nil
	}
}

// MatchesHost reports whether host belongs to the marketplace.
func (m Marketplace) MatchesHost(host string) bool {
	p := m.hostPattern()
	return p != nil && p.MatchString(strings.ToLower(host))
}

// ItemURL substitutes an already known item id into the marketplace's
// canonical item-page template.
func (m Marketplace) ItemURL(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	switch m {
	case MarketplaceTaobao:
		return "https://item.taobao.com/item.htm?id=" + url.QueryEscape(id), true
	case MarketplaceWeidian:
		return "https://weidian.com/item.html?itemID=" + url.QueryEscape(id), true
	case Marketplace1688:
		return "https://detail.1688.com/offer/" + url.PathEscape(id) + ".html", true
	default:
		return "", false
	}
}

// Canonicalize extracts the item id from a raw marketplace URL and returns
// the canonical item-page URL. Listing pages and malformed URLs yield false.
func Canonicalize(m Marketplace, rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	q := u.Query()

	switch m {
	case MarketplaceTaobao:
		return m.ItemURL(q.Get("id"))

	case MarketplaceWeidian:
		for _, key := range []string{"itemID", "itemId", "id"} {
			if v := q.Get(key); v != "" {
				return m.ItemURL(v)
			}
		}
		return "", false

	case Marketplace1688:
		id := lastSegment(u.Path)
		id = strings.TrimSuffix(id, ".html")
		id = strings.TrimSuffix(id, ".htm")
		if !offerID.MatchString(id) {
			return "", false
		}
		return m.ItemURL(id)

	default:
		return "", false
	}
}

// lastSegment returns the last non-empty path segment.
func lastSegment(p string) string {
	parts := strings.Split(p, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}
