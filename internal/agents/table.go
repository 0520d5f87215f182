package agents

import (
	"regexp"

	"github.com/MrSnakeDoc/linkwrap/internal/domain"
)

// ID enumerates the supported agents. Declaration order is dispatch
// priority.
type ID int

const (
	Kakobuy ID = iota
	CNFans
	Joyabuy
	Pandabuy
	Mulebuy
	CSSBuy
	Superbuy
	Wegobuy
	AllChinaBuy
	Sugargoo
	Hagobuy
	Basetao
	Hoobuy
	Oopbuy
	ACBuy
	Lovegobuy
	Orientdig
	Itaobuy
	USFans
	Eastmallbuy
)

const defaultEmoji = "<:kb:1354527507180949615>"

// hostPattern matches domain and any of its subdomains.
func hostPattern(domains string) *regexp.Regexp {
	return regexp.MustCompile(`(^|\.)(` + domains + `)$`)
}

var (
	productPath     = regexp.MustCompile(`^/product/(?P<platform>[A-Za-z0-9_]+)/(?P<id>\d+)/?$`)
	cssbuyPairPath  = regexp.MustCompile(`^/item-(?P<platform>[a-z0-9]+)-(?P<id>\d+)\.html$`)
	cssbuyTaobao    = regexp.MustCompile(`^/item-(?P<id>\d+)\.html$`)
	basetaoPath     = regexp.MustCompile(`^/products/agent/(?P<platform>[A-Za-z0-9_]+)/(?P<id>\d+)\.html$`)
	pandabuyShort   = regexp.MustCompile(`(^|\.)pandabuy\.(page|allapp)\.link$`)
	hoobuyPlatforms = map[string]domain.Marketplace{
		"0": domain.Marketplace1688,
		"1": domain.MarketplaceTaobao,
		"2": domain.MarketplaceWeidian,
	}
)

// definitions returns a fresh copy of the priority table.
func definitions() []Agent {
	return []Agent{
		{
			ID: Kakobuy, Name: "kakobuy", Emoji: defaultEmoji,
			AffiliateMarker: "affcode",
			host:            hostPattern(`kakobuy\.com`),
			strategies:      []strategy{passthroughInnerOriginal("url")},
		},
		{
			ID: CNFans, Name: "cnfans", Emoji: defaultEmoji,
			host:       hostPattern(`cnfans\.com`),
			strategies: []strategy{structured(nil, nil), pathPattern(productPath, domain.MarketplaceUnknown, nil)},
		},
		{
			ID: Joyabuy, Name: "joyabuy", Emoji: defaultEmoji,
			host:       hostPattern(`joyabuy\.com`),
			strategies: []strategy{structured(nil, nil)},
		},
		{
			ID: Pandabuy, Name: "pandabuy", Emoji: defaultEmoji,
			host: hostPattern(`pandabuy\.com|pandabuy\.page\.link|pandabuy\.allapp\.link`),
			strategies: []strategy{
				redirect(pandabuyShort),
				onPath("/product", passthrough("url")),
			},
		},
		{
			ID: Mulebuy, Name: "mulebuy", Emoji: defaultEmoji,
			host:       hostPattern(`mulebuy\.com`),
			strategies: []strategy{structured(nil, nil), pathPattern(productPath, domain.MarketplaceUnknown, nil)},
		},
		{
			ID: CSSBuy, Name: "cssbuy", Emoji: "🛒",
			host: hostPattern(`cssbuy\.com`),
			strategies: []strategy{
				pathPattern(cssbuyPairPath, domain.MarketplaceUnknown, nil),
				pathPattern(cssbuyTaobao, domain.MarketplaceTaobao, nil),
			},
		},
		{
			ID: Superbuy, Name: "superbuy", Emoji: "🛒",
			host:       hostPattern(`superbuy\.com`),
			strategies: []strategy{passthrough("url")},
		},
		{
			ID: Wegobuy, Name: "wegobuy", Emoji: "🛒",
			host:       hostPattern(`wegobuy\.com`),
			strategies: []strategy{passthrough("url")},
		},
		{
			ID: AllChinaBuy, Name: "allchinabuy", Emoji: "🛒",
			host:       hostPattern(`allchinabuy\.com`),
			strategies: []strategy{passthrough("url")},
		},
		{
			ID: Sugargoo, Name: "sugargoo", Emoji: "🍬",
			host:       hostPattern(`sugargoo\.com`),
			strategies: []strategy{fragment("productLink", "url"), passthrough("productLink", "url")},
		},
		{
			ID: Hagobuy, Name: "hagobuy", Emoji: "🛒",
			host:       hostPattern(`hagobuy\.com`),
			strategies: []strategy{structured(nil, nil), passthrough("url")},
		},
		{
			ID: Basetao, Name: "basetao", Emoji: "🛒",
			host:       hostPattern(`basetao\.com`),
			strategies: []strategy{pathPattern(basetaoPath, domain.MarketplaceUnknown, nil)},
		},
		{
			ID: Hoobuy, Name: "hoobuy", Emoji: "🛒",
			host: hostPattern(`hoobuy\.com`),
			strategies: []strategy{
				pathPattern(productPath, domain.MarketplaceUnknown, hoobuyPlatforms),
				apiLookup(
					"https://hoobuy.com/api/share/resolve?url=%s",
					"https://api.hoobuy.com/hoobuy_order/share/origin?url=%s",
				),
			},
		},
		{
			ID: Oopbuy, Name: "oopbuy", Emoji: "🛒",
			host: hostPattern(`oopbuy\.com`),
			strategies: []strategy{
				pathPattern(productPath, domain.MarketplaceUnknown, nil),
				apiLookup(
					"https://oopbuy.com/api/share/resolve?url=%s",
					"https://api.oopbuy.com/share/origin?url=%s",
				),
			},
		},
		{
			ID: ACBuy, Name: "acbuy", Emoji: "🛒",
			host:       hostPattern(`acbuy\.com`),
			strategies: []strategy{structured([]string{"source", "shop_type", "platform"}, nil)},
		},
		{
			ID: Lovegobuy, Name: "lovegobuy", Emoji: "🛒",
			host:       hostPattern(`lovegobuy\.com`),
			strategies: []strategy{structured(nil, nil)},
		},
		{
			ID: Orientdig, Name: "orientdig", Emoji: "🛒",
			host:       hostPattern(`orientdig\.com`),
			strategies: []strategy{structured(nil, nil)},
		},
		{
			ID: Itaobuy, Name: "itaobuy", Emoji: "🛒",
			host:       hostPattern(`itaobuy\.com`),
			strategies: []strategy{passthrough("url")},
		},
		{
			ID: USFans, Name: "usfans", Emoji: "🛒",
			host:       hostPattern(`usfans\.com`),
			strategies: []strategy{pathPattern(productPath, domain.MarketplaceUnknown, nil)},
		},
		{
			ID: Eastmallbuy, Name: "eastmallbuy", Emoji: "🛒",
			host:       hostPattern(`eastmallbuy\.com`),
			strategies: []strategy{structured(nil, []string{"id", "itemID", "goodsId"})},
		},
	}
}

var idNames = [...]string{
	"kakobuy", "cnfans", "joyabuy", "pandabuy", "mulebuy",
	"cssbuy", "superbuy", "wegobuy", "allchinabuy", "sugargoo",
	"hagobuy", "basetao", "hoobuy", "oopbuy", "acbuy",
	"lovegobuy", "orientdig", "itaobuy", "usfans", "eastmallbuy",
}

// String returns the agent name.
func (id ID) String() string {
	if id < 0 || int(id) >= len(idNames) {
		return "unknown"
	}
	return idNames[id]
}
