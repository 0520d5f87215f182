package domain

// Style is a display override for one entity.
type Style struct {
	Emoji string
	Label string
}

// Branding collects the display overrides read from the branding file.
// Missing entries mean "use the default".
type Branding struct {
	Affiliate    Style
	Marketplaces map[Marketplace]Style
	Agents       map[string]Style
}

// Entries returns the number of overrides.
func (b Branding) Entries() int {
	n := len(b.Marketplaces) + len(b.Agents)
	if b.Affiliate != (Style{}) {
		n++
	}
	return n
}
