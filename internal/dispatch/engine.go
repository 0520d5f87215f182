// Package dispatch resolves every URL of a message into a normalized link.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/linkwrap/internal/agents"
	"github.com/MrSnakeDoc/linkwrap/internal/domain"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	"github.com/MrSnakeDoc/linkwrap/internal/metrics"
)

// DefaultConcurrency bounds parallel URL resolution within one message.
const DefaultConcurrency = 4

// Result partitions a batch of URLs. Both slices follow input order.
type Result struct {
	Valid   []domain.NormalizedLink
	Invalid []string
}

// Accepted reports whether the batch may be converted. A single
// unrecognized URL rejects the whole batch.
func (r Result) Accepted() bool {
	return len(r.Invalid) == 0 && len(r.Valid) > 0
}

// Parser is one candidate agent.
type Parser interface {
	Parse(ctx context.Context, rawURL string) (domain.NormalizedLink, bool)
}

// Engine runs agents and the direct-link fallback over a batch.
type Engine struct {
	table       *agents.Table
	concurrency int
	logger      logger.Logger
	metrics     *metrics.Metrics
}

// New builds an engine over table. m may be nil.
func New(table *agents.Table, concurrency int, log logger.Logger, m *metrics.Metrics) *Engine {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Engine{
		table:       table,
		concurrency: concurrency,
		logger:      log,
		metrics:     m,
	}
}

type outcome struct {
	link domain.NormalizedLink
	ok   bool
}

// ProcessAll resolves every URL. It never returns early: each URL ends up
// either valid or invalid.
func (e *Engine) ProcessAll(ctx context.Context, urls []string) Result {
	start := time.Now()
	outcomes := make([]outcome, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, raw := range urls {
		g.Go(func() error {
			link, ok := e.resolve(gctx, raw)
			outcomes[i] = outcome{link: link, ok: ok}
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	var res Result
	for i, o := range outcomes {
		if o.ok {
			res.Valid = append(res.Valid, o.link)
		} else {
			res.Invalid = append(res.Invalid, urls[i])
		}
	}

	e.metrics.ObserveLinks(len(res.Valid), len(res.Invalid))
	e.metrics.ObserveDispatch(time.Since(start).Seconds())
	return res
}

// resolve tries each matching agent in priority order, then the direct
// marketplace fallback.
func (e *Engine) resolve(ctx context.Context, raw string) (domain.NormalizedLink, bool) {
	for _, a := range e.table.Match(raw) {
		link, ok := e.tryAgent(ctx, a.Name, a, raw)
		if ok {
			e.metrics.ObserveAgent(a.Name, "ok")
			return link, true
		}
	}

	m, canonical, ok := e.table.Detector().Resolve(raw)
	if !ok {
		e.logger.Debug("url not recognized", logger.String("url", raw))
		return domain.NormalizedLink{}, false
	}
	return domain.NormalizedLink{
		Original:            raw,
		Canonical:           canonical,
		Marketplace:         m,
		NeedsAffiliateParam: true,
	}, true
}

// tryAgent runs one parser, turning a panic into a failed parse.
func (e *Engine) tryAgent(ctx context.Context, name string, p Parser, raw string) (link domain.NormalizedLink, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("agent parser panicked",
				logger.String("agent", name),
				logger.String("url", raw),
				logger.Error(fmt.Errorf("%v", r)))
			e.metrics.ObserveAgent(name, "panic")
			link, ok = domain.NormalizedLink{}, false
		}
	}()

	link, ok = p.Parse(ctx, raw)
	if !ok {
		e.metrics.ObserveAgent(name, "miss")
	}
	return link, ok
}
