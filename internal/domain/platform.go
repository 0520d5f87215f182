package domain

import "strings"

// platformAliases maps the platform tokens agents use in query parameters and
// paths onto marketplaces. Keys are lowercase; numeric tokens are plain
// strings, so "1688" is both the name and the alias.
var platformAliases = map[string]Marketplace{
	"taobao": MarketplaceTaobao,
	"tb":     MarketplaceTaobao,
	"tmall":  MarketplaceTaobao,

	"weidian": MarketplaceWeidian,
	"wd":      MarketplaceWeidian,
	"micro":   MarketplaceWeidian,
	"koudai":  MarketplaceWeidian,

	"1688":     Marketplace1688,
	"ali_1688": Marketplace1688,
	"ali1688":  Marketplace1688,
	"alibaba":  Marketplace1688,
	"al":       Marketplace1688,
}

// PlatformFromAlias resolves an agent platform token, case-insensitively.
func PlatformFromAlias(token string) (Marketplace, bool) {
	m, ok := platformAliases[strings.ToLower(strings.TrimSpace(token))]
	return m, ok
}
