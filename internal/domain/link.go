package domain

// NormalizedLink is the result of recognizing one raw URL.
//
// It is built once by the dispatch engine and never mutated afterwards.
type NormalizedLink struct {
	// Original is the URL counted by the rate limiter. Most agents keep
	// the URL the user posted; a few keep the decoded inner URL.
	Original string

	// Canonical is the marketplace item-page URL.
	Canonical string

	Marketplace Marketplace

	// NeedsAffiliateParam is false only when the posted URL already
	// carried an affiliate marker.
	NeedsAffiliateParam bool

	// SourceAgent names the agent that produced the link. Empty for
	// direct marketplace links.
	SourceAgent string
}

// IsDirect reports whether the link was posted as a raw marketplace URL.
func (l NormalizedLink) IsDirect() bool {
	return l.SourceAgent == ""
}
