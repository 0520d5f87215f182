package agents

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/linkwrap/internal/domain"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

// input is the URL a strategy works on.
type input struct {
	raw  string
	u    *url.URL
	hops int
}

// strategy is one extraction technique. Agent.parse fills in SourceAgent,
// NeedsAffiliateParam and a default Original on success.
type strategy func(ctx context.Context, a *Agent, in input) (domain.NormalizedLink, bool)

// firstParam returns the first non-empty value among keys.
func firstParam(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// fromInner detects and canonicalizes a decoded inner marketplace URL.
func fromInner(a *Agent, inner string) (domain.NormalizedLink, bool) {
	if !domain.IsAbsoluteURL(inner) {
		return domain.NormalizedLink{}, false
	}
	m, canonical, ok := a.table.detector.Resolve(inner)
	if !ok {
		return domain.NormalizedLink{}, false
	}
	return domain.NormalizedLink{Canonical: canonical, Marketplace: m}, true
}

// passthrough reads a wrapped marketplace URL from one of params.
func passthrough(params ...string) strategy {
	return func(_ context.Context, a *Agent, in input) (domain.NormalizedLink, bool) {
		v := firstParam(in.u.Query(), params...)
		if v == "" {
			return domain.NormalizedLink{}, false
		}
		return fromInner(a, domain.DecodeTarget(v))
	}
}

// passthroughInnerOriginal is passthrough that reports the decoded inner
// URL as Original.
func passthroughInnerOriginal(params ...string) strategy {
	inner := passthrough(params...)
	return func(ctx context.Context, a *Agent, in input) (domain.NormalizedLink, bool) {
		link, ok := inner(ctx, a, in)
		if !ok {
			return link, false
		}
		link.Original = domain.DecodeTarget(firstParam(in.u.Query(), params...))
		return link, true
	}
}

// onPath restricts s to URLs whose path starts with prefix.
func onPath(prefix string, s strategy) strategy {
	return func(ctx context.Context, a *Agent, in input) (domain.NormalizedLink, bool) {
		if !strings.HasPrefix(strings.ToLower(in.u.Path), prefix) {
			return domain.NormalizedLink{}, false
		}
		return s(ctx, a, in)
	}
}

var (
	defaultPlatformKeys = []string{"shop_type", "platform", "source"}
	defaultIDKeys       = []string{"id"}
)

// structured reads a (platform, id) query pair. Nil key lists use the
// defaults.
func structured(platformKeys, idKeys []string) strategy {
	if platformKeys == nil {
		platformKeys = defaultPlatformKeys
	}
	if idKeys == nil {
		idKeys = defaultIDKeys
	}
	return func(_ context.Context, _ *Agent, in input) (domain.NormalizedLink, bool) {
		q := in.u.Query()
		platform := firstParam(q, platformKeys...)
		id := firstParam(q, idKeys...)
		if platform == "" || id == "" {
			return domain.NormalizedLink{}, false
		}
		return fromPair(nil, platform, id)
	}
}

// fromPair resolves a platform token and item id. codes overrides the alias
// table for agent-specific numeric tokens.
func fromPair(codes map[string]domain.Marketplace, platform, id string) (domain.NormalizedLink, bool) {
	m, ok := codes[platform]
	if !ok {
		m, ok = domain.PlatformFromAlias(platform)
	}
	if !ok {
		return domain.NormalizedLink{}, false
	}
	canonical, ok := m.ItemURL(id)
	if !ok {
		return domain.NormalizedLink{}, false
	}
	return domain.NormalizedLink{Canonical: canonical, Marketplace: m}, true
}

// pathPattern matches the URL path against re, which must have an "id"
// group and either a "platform" group or a fixed marketplace.
func pathPattern(re *regexp.Regexp, fixed domain.Marketplace, codes map[string]domain.Marketplace) strategy {
	idIdx := re.SubexpIndex("id")
	platformIdx := re.SubexpIndex("platform")
	if idIdx < 0 || (platformIdx < 0 && fixed == domain.MarketplaceUnknown) {
		panic(fmt.Sprintf("agents: pattern %s needs id and platform groups", re))
	}

	return func(_ context.Context, _ *Agent, in input) (domain.NormalizedLink, bool) {
		sm := re.FindStringSubmatch(in.u.Path)
		if sm == nil {
			return domain.NormalizedLink{}, false
		}
		id := sm[idIdx]
		if platformIdx < 0 {
			canonical, ok := fixed.ItemURL(id)
			if !ok {
				return domain.NormalizedLink{}, false
			}
			return domain.NormalizedLink{Canonical: canonical, Marketplace: fixed}, true
		}
		return fromPair(codes, sm[platformIdx], id)
	}
}

// redirect resolves short links on shortHosts and re-parses the target.
// A target outside the agent's own hosts goes straight to the detector.
func redirect(shortHosts *regexp.Regexp) strategy {
	return func(ctx context.Context, a *Agent, in input) (domain.NormalizedLink, bool) {
		t := a.table
		if t.resolver == nil || !shortHosts.MatchString(strings.ToLower(in.u.Hostname())) {
			return domain.NormalizedLink{}, false
		}
		if in.hops >= t.maxHops {
			t.logger.Debug("redirect hop budget exhausted",
				logger.String("agent", a.Name),
				logger.String("url", in.raw),
				logger.Int("hops", in.hops))
			return domain.NormalizedLink{}, false
		}

		loc, err := t.resolver.ResolveRedirect(ctx, in.raw)
		if err != nil {
			t.logger.Debug("redirect resolution failed",
				logger.String("agent", a.Name),
				logger.String("url", in.raw),
				logger.Error(err))
			return domain.NormalizedLink{}, false
		}

		if host, ok := domain.Host(loc); ok && a.MatchesHost(host) {
			link, ok := a.parse(ctx, loc, in.hops+1)
			if ok {
				link.Original = loc
			}
			return link, ok
		}

		link, ok := fromInner(a, loc)
		if ok {
			link.Original = loc
		}
		return link, ok
	}
}

// apiLookup asks the agent's API for the origin URL behind a share link.
// Endpoint templates receive the query-escaped posted URL through %s.
func apiLookup(primary, fallback string) strategy {
	return func(ctx context.Context, a *Agent, in input) (domain.NormalizedLink, bool) {
		t := a.table
		if t.resolver == nil {
			return domain.NormalizedLink{}, false
		}

		escaped := url.QueryEscape(in.raw)
		var p, f string
		if primary != "" {
			p = fmt.Sprintf(primary, escaped)
		}
		if fallback != "" {
			f = fmt.Sprintf(fallback, escaped)
		}

		origin, err := t.resolver.LookupOrigin(ctx, a.Name+":"+in.raw, p, f)
		if err != nil {
			t.logger.Debug("origin lookup failed",
				logger.String("agent", a.Name),
				logger.String("url", in.raw),
				logger.Error(err))
			return domain.NormalizedLink{}, false
		}
		return fromInner(a, domain.DecodeTarget(origin))
	}
}

// fragment reads a nested product link from the URL fragment, which some
// single-page agents use as their own query string ("#/detail?productLink=").
func fragment(params ...string) strategy {
	return func(_ context.Context, a *Agent, in input) (domain.NormalizedLink, bool) {
		_, rawQuery, found := strings.Cut(in.u.EscapedFragment(), "?")
		if !found || rawQuery == "" {
			return domain.NormalizedLink{}, false
		}
		// ParseQuery keeps the well-formed pairs when it reports an error.
		q, _ := url.ParseQuery(rawQuery)
		v := firstParam(q, params...)
		if v == "" {
			return domain.NormalizedLink{}, false
		}
		return fromInner(a, domain.DecodeTarget(v))
	}
}
