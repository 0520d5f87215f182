package branding

// File represents the top-level structure of the branding yaml
type File struct {
	Affiliate    Entry            `yaml:"affiliate"`
	Marketplaces map[string]Entry `yaml:"marketplaces"`
	Agents       map[string]Entry `yaml:"agents"`
}

// Entry is one display override
type Entry struct {
	Emoji string `yaml:"emoji,omitempty"`
	Label string `yaml:"label,omitempty"`
}
