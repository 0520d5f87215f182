package branding

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/linkwrap/internal/domain"
)

// Mapper converts a branding File to domain.Branding
type Mapper struct {
	knownAgents map[string]bool
}

// NewMapper creates a mapper that accepts overrides for the given agent
// names. Unknown agents and marketplaces are skipped.
func NewMapper(agentNames []string) *Mapper {
	known := make(map[string]bool, len(agentNames))
	for _, n := range agentNames {
		known[n] = true
	}
	return &Mapper{knownAgents: known}
}

// Map converts File to domain.Branding. It returns the names of skipped
// entries so the caller can log them.
func (m *Mapper) Map(file File) (domain.Branding, []string, error) {
	out := domain.Branding{
		Affiliate:    style(file.Affiliate),
		Marketplaces: make(map[domain.Marketplace]domain.Style, len(file.Marketplaces)),
		Agents:       make(map[string]domain.Style, len(file.Agents)),
	}
	var skipped []string

	for name, entry := range file.Marketplaces {
		mk, ok := domain.MarketplaceByName(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			skipped = append(skipped, "marketplaces."+name)
			continue
		}
		if s := style(entry); s != (domain.Style{}) {
			out.Marketplaces[mk] = s
		}
	}

	for name, entry := range file.Agents {
		key := strings.ToLower(strings.TrimSpace(name))
		if !m.knownAgents[key] {
			skipped = append(skipped, "agents."+name)
			continue
		}
		if s := style(entry); s != (domain.Style{}) {
			out.Agents[key] = s
		}
	}

	if out.Entries() == 0 {
		return domain.Branding{}, skipped, fmt.Errorf("no valid entries found in branding file")
	}

	return out, skipped, nil
}

func style(e Entry) domain.Style {
	return domain.Style{
		Emoji: strings.TrimSpace(e.Emoji),
		Label: strings.TrimSpace(e.Label),
	}
}
