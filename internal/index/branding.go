package index

import (
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkwrap/internal/domain"
)

const (
	// DefaultEmoji is used for marketplaces without an override.
	DefaultEmoji = "🔗"
	// DefaultAffiliateLabel is the label of the redirect button.
	DefaultAffiliateLabel = "KakoBuy"
	// DefaultAffiliateEmoji is the KakoBuy server emoji.
	DefaultAffiliateEmoji = "<:kb:1354527507180949615>"
)

// BrandingIndex holds the current display overrides. Lookups fall back to
// built-in defaults, so an empty index is fully usable.
type BrandingIndex struct {
	mu         sync.RWMutex
	branding   domain.Branding
	lastReload time.Time // Timestamp of last branding reload
}

// NewBrandingIndex creates an empty index
func NewBrandingIndex() *BrandingIndex {
	return &BrandingIndex{}
}

// Update replaces all overrides
func (idx *BrandingIndex) Update(b domain.Branding) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.branding = b
	idx.lastReload = time.Now()
}

// MarketplaceEmoji returns the emoji for m, defaulting to DefaultEmoji
func (idx *BrandingIndex) MarketplaceEmoji(m domain.Marketplace) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if s := idx.branding.Marketplaces[m]; s.Emoji != "" {
		return s.Emoji
	}
	return DefaultEmoji
}

// MarketplaceLabel returns the button label for m, defaulting to the
// upper-cased marketplace name
func (idx *BrandingIndex) MarketplaceLabel(m domain.Marketplace) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if s := idx.branding.Marketplaces[m]; s.Label != "" {
		return s.Label
	}
	return strings.ToUpper(m.Name())
}

// AgentEmoji returns the override for an agent, or fallback
func (idx *BrandingIndex) AgentEmoji(name, fallback string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if s := idx.branding.Agents[name]; s.Emoji != "" {
		return s.Emoji
	}
	return fallback
}

// Affiliate returns the redirect button style
func (idx *BrandingIndex) Affiliate() domain.Style {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s := idx.branding.Affiliate
	if s.Label == "" {
		s.Label = DefaultAffiliateLabel
	}
	if s.Emoji == "" {
		s.Emoji = DefaultAffiliateEmoji
	}
	return s
}

// Count returns the number of overrides in the index
func (idx *BrandingIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.branding.Entries()
}

// GetLastReload returns the timestamp of the last reload
func (idx *BrandingIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}
