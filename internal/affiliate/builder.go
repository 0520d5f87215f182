// Package affiliate turns normalized links into affiliate redirects and
// their display form.
package affiliate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/linkwrap/internal/domain"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

const (
	DefaultBaseURL = "https://www.kakobuy.com/item/details"
	DefaultParam   = "affcode"
)

// Button is a link button to render.
type Button struct {
	Label string
	URL   string
	Emoji string
}

// Branding supplies display overrides. index.BrandingIndex satisfies it.
type Branding interface {
	MarketplaceEmoji(m domain.Marketplace) string
	MarketplaceLabel(m domain.Marketplace) string
	Affiliate() domain.Style
}

// Options configures a Builder.
type Options struct {
	BaseURL string
	Param   string
	Code    string
}

// Builder produces redirect URLs, description lines and buttons.
type Builder struct {
	base     *url.URL
	param    string
	code     string
	branding Branding
	logger   logger.Logger
}

// New validates the base URL and returns a builder.
func New(opts Options, branding Branding, log logger.Logger) (*Builder, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Param == "" {
		opts.Param = DefaultParam
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid affiliate base url %q", opts.BaseURL)
	}
	return &Builder{
		base:     base,
		param:    opts.Param,
		code:     opts.Code,
		branding: branding,
		logger:   log,
	}, nil
}

// Redirect returns the affiliate redirect for link. The affiliate param is
// added once, and only when the link needs it.
func (b *Builder) Redirect(link domain.NormalizedLink) (string, error) {
	if link.Canonical == "" {
		return "", fmt.Errorf("link has no canonical url")
	}

	u := *b.base
	q := u.Query()
	q.Set("url", link.Canonical)
	q.Del(b.param)
	if link.NeedsAffiliateParam && b.code != "" {
		q.Set(b.param, b.code)
	}
	u.RawQuery = encodeOrdered(q, "url", b.param)
	return u.String(), nil
}

// encodeOrdered encodes q with first keys in the given order, the rest
// sorted, so the canonical URL comes right after the base.
func encodeOrdered(q url.Values, first ...string) string {
	var sb strings.Builder
	write := func(k string, vs []string) {
		for _, v := range vs {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	for _, k := range first {
		write(k, q[k])
		delete(q, k)
	}
	if rest := q.Encode(); rest != "" {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(rest)
	}
	return sb.String()
}

// Build renders every link. A link that fails is logged and skipped.
func (b *Builder) Build(links []domain.NormalizedLink) ([]string, []Button) {
	descriptions := make([]string, 0, len(links))
	buttons := make([]Button, 0, 2*len(links))
	aff := b.branding.Affiliate()

	for _, link := range links {
		redirect, err := b.Redirect(link)
		if err != nil {
			b.logger.Warn("skipping link",
				logger.String("original", link.Original),
				logger.Error(err))
			continue
		}

		emoji := b.branding.MarketplaceEmoji(link.Marketplace)
		label := b.branding.MarketplaceLabel(link.Marketplace)

		var source string
		if link.SourceAgent != "" {
			source = fmt.Sprintf(" (from %s)", link.SourceAgent)
		}

		descriptions = append(descriptions, fmt.Sprintf("%s %s%s:\nOriginal: %s\n%s: %s\n",
			emoji, strings.ToUpper(link.Marketplace.Name()), source, link.Canonical, aff.Label, redirect))

		buttons = append(buttons,
			Button{Label: label, URL: link.Canonical, Emoji: emoji},
			Button{Label: aff.Label, URL: redirect, Emoji: aff.Emoji},
		)
	}

	return descriptions, buttons
}
