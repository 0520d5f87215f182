package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// Detector identifies which marketplace a direct link belongs to. Hosts that
// belong to an agent are excluded so a wrapper URL is never mistaken for a
// direct marketplace link.
type Detector struct {
	excluded []*regexp.Regexp
}

// NewDetector returns a detector that refuses any host matching one of the
// excluded patterns.
func NewDetector(excluded ...*regexp.Regexp) *Detector {
	return &Detector{excluded: excluded}
}

// Detect returns the first marketplace, in declaration order, whose host
// pattern matches rawURL.
func (d *Detector) Detect(rawURL string) (Marketplace, bool) {
	host, ok := Host(rawURL)
	if !ok {
		return MarketplaceUnknown, false
	}
	for _, p := range d.excluded {
		if p.MatchString(host) {
			return MarketplaceUnknown, false
		}
	}
	for _, m := range Marketplaces {
		if m.MatchesHost(host) {
			return m, true
		}
	}
	return MarketplaceUnknown, false
}

// Resolve detects the marketplace of rawURL and canonicalizes it in one step.
func (d *Detector) Resolve(rawURL string) (Marketplace, string, bool) {
	m, ok := d.Detect(rawURL)
	if !ok {
		return MarketplaceUnknown, "", false
	}
	canonical, ok := Canonicalize(m, rawURL)
	if !ok {
		return MarketplaceUnknown, "", false
	}
	return m, canonical, true
}

// Host returns the lowercased hostname of an absolute http(s) URL.
func Host(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !isHTTP(u) {
		return "", false
	}
	return strings.ToLower(u.Hostname()), true
}

func isHTTP(u *url.URL) bool {
	if u == nil || u.Host == "" {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}
