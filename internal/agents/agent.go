// Package agents recognizes reseller "agent" links and recovers the
// marketplace item they point to.
package agents

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/linkwrap/internal/domain"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

// DefaultMaxHops bounds redirect recursion within one agent.
const DefaultMaxHops = 3

// Resolver performs the network lookups some strategies need.
// fetch.Client satisfies it.
type Resolver interface {
	ResolveRedirect(ctx context.Context, rawURL string) (string, error)
	LookupOrigin(ctx context.Context, cacheKey, primary, fallback string) (string, error)
}

// Agent is one entry of the priority table.
type Agent struct {
	ID    ID
	Name  string
	Emoji string

	// AffiliateMarker is the query param whose presence means the link
	// already carries an affiliate code.
	AffiliateMarker string

	host       *regexp.Regexp
	strategies []strategy
	table      *Table
}

// MatchesHost reports whether host belongs to the agent.
func (a *Agent) MatchesHost(host string) bool {
	return a.host.MatchString(strings.ToLower(host))
}

// Parse extracts a normalized link from rawURL. It never panics for
// malformed input; absence is reported with false.
func (a *Agent) Parse(ctx context.Context, rawURL string) (domain.NormalizedLink, bool) {
	return a.parse(ctx, rawURL, 0)
}

func (a *Agent) parse(ctx context.Context, rawURL string, hops int) (domain.NormalizedLink, bool) {
	host, ok := domain.Host(rawURL)
	if !ok || !a.MatchesHost(host) {
		return domain.NormalizedLink{}, false
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return domain.NormalizedLink{}, false
	}

	in := input{raw: rawURL, u: u, hops: hops}
	for _, s := range a.strategies {
		if ctx.Err() != nil {
			return domain.NormalizedLink{}, false
		}
		link, ok := s(ctx, a, in)
		if !ok {
			continue
		}
		if link.Original == "" {
			link.Original = rawURL
		}
		link.SourceAgent = a.Name
		link.NeedsAffiliateParam = !(a.AffiliateMarker != "" && u.Query().Has(a.AffiliateMarker))
		return link, true
	}
	return domain.NormalizedLink{}, false
}

// Options configures a Table.
type Options struct {
	Resolver Resolver
	MaxHops  int
	Logger   logger.Logger
}

// Table is the ordered set of agents bound to their network resolver.
type Table struct {
	agents   []*Agent
	detector *domain.Detector
	resolver Resolver
	maxHops  int
	logger   logger.Logger
}

// New builds the priority table. A nil Resolver disables the network
// strategies.
func New(opts Options) *Table {
	if opts.MaxHops <= 0 {
		opts.MaxHops = DefaultMaxHops
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	t := &Table{
		resolver: opts.Resolver,
		maxHops:  opts.MaxHops,
		logger:   opts.Logger,
	}

	defs := definitions()
	patterns := make([]*regexp.Regexp, 0, len(defs))
	for i := range defs {
		a := defs[i]
		a.table = t
		t.agents = append(t.agents, &a)
		patterns = append(patterns, a.host)
	}
	t.detector = domain.NewDetector(patterns...)
	return t
}

// All returns the agents in priority order.
func (t *Table) All() []*Agent {
	return t.agents
}

// Names returns the agent names in priority order.
func (t *Table) Names() []string {
	out := make([]string, len(t.agents))
	for i, a := range t.agents {
		out[i] = a.Name
	}
	return out
}

// Match returns the agents whose host pattern matches rawURL, in priority
// order.
func (t *Table) Match(rawURL string) []*Agent {
	host, ok := domain.Host(rawURL)
	if !ok {
		return nil
	}
	var out []*Agent
	for _, a := range t.agents {
		if a.MatchesHost(host) {
			out = append(out, a)
		}
	}
	return out
}

// ByName looks an agent up by name.
func (t *Table) ByName(name string) (*Agent, bool) {
	for _, a := range t.agents {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Detector is the marketplace detector that excludes every agent host.
func (t *Table) Detector() *domain.Detector {
	return t.detector
}
